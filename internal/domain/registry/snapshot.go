package registry

import (
	"sort"

	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
)

// Snapshot vista inmutable del registro después de Freeze. Es segura para lectura concurrente
// y todas sus consultas devuelven copias.
type Snapshot struct {
	st *state
}

// Version número de escrituras aceptadas antes de congelar.
func (s *Snapshot) Version() int { return s.st.version }

// MergeThreshold umbral de similitud usado al construir el registro.
func (s *Snapshot) MergeThreshold() float64 { return s.st.threshold }

// ResolveSupplier igual que Registry.ResolveSupplier, sobre la vista congelada.
func (s *Snapshot) ResolveSupplier(nitOrName string) (entity.SupplierID, error) {
	return s.st.resolveSupplier(nitOrName)
}

// Supplier devuelve el proveedor por ID.
func (s *Snapshot) Supplier(id entity.SupplierID) (entity.Supplier, bool) {
	sup, ok := s.st.suppliers[id]
	if !ok {
		return entity.Supplier{}, false
	}
	return copySupplier(sup), true
}

// Suppliers todos los proveedores en orden de registro.
func (s *Snapshot) Suppliers() []entity.Supplier {
	out := make([]entity.Supplier, 0, len(s.st.supplierOrder))
	for _, id := range s.st.supplierOrder {
		out = append(out, copySupplier(s.st.suppliers[id]))
	}
	return out
}

// Product devuelve el producto por clave (ver ProductKey).
func (s *Snapshot) Product(key string) (entity.Product, bool) {
	p, ok := s.st.products[key]
	if !ok {
		return entity.Product{}, false
	}
	return copyProduct(p), true
}

// Products todos los productos en orden de registro.
func (s *Snapshot) Products() []entity.Product {
	out := make([]entity.Product, 0, len(s.st.productOrder))
	for _, k := range s.st.productOrder {
		out = append(out, copyProduct(s.st.products[k]))
	}
	return out
}

// ProductsBySupplier productos que suministra el proveedor, en orden de registro.
func (s *Snapshot) ProductsBySupplier(id entity.SupplierID) []entity.Product {
	keys := s.st.productsBySupplier[id]
	out := make([]entity.Product, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyProduct(s.st.products[k]))
	}
	return out
}

// CostEntries entradas del modelo de causación con sus marcas de validación.
func (s *Snapshot) CostEntries() []entity.CostEntry {
	out := make([]entity.CostEntry, len(s.st.costEntries))
	for i, e := range s.st.costEntries {
		out[i] = *e
		out[i].Flags = append(entity.Flags(nil), e.Flags...)
	}
	return out
}

// CostCenters centros de costo (ordenados) a los que se asigna el PUC en el modelo de causación.
func (s *Snapshot) CostCenters(puc string) []string {
	set := make(map[string]bool)
	for _, e := range s.st.costEntries {
		if e.PUC == puc && e.CostCenter != "" {
			set[e.CostCenterKey()] = true
		}
	}
	return sortedKeys(set)
}

// CostCenterFor centro de costo asignado al PUC cuando es único; "" si no existe o hay varios.
func (s *Snapshot) CostCenterFor(puc string) string {
	centers := s.CostCenters(puc)
	if len(centers) != 1 {
		return ""
	}
	return centers[0]
}

// PUCName nombre de la cuenta en el plan de cuentas.
func (s *Snapshot) PUCName(code string) (string, bool) {
	name, ok := s.st.chart[code]
	return name, ok
}

// Chart códigos del plan de cuentas ordenados.
func (s *Snapshot) Chart() []string {
	out := make([]string, 0, len(s.st.chart))
	for code := range s.st.chart {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func copySupplier(s *entity.Supplier) entity.Supplier {
	cp := *s
	cp.FiscalResponsibilities = append([]string(nil), s.FiscalResponsibilities...)
	cp.Aliases = append([]string(nil), s.Aliases...)
	cp.Sources = append([]string(nil), s.Sources...)
	cp.Flags = append(entity.Flags(nil), s.Flags...)
	return cp
}

func copyProduct(p *entity.Product) entity.Product {
	cp := *p
	cp.SupplierNITs = append([]string(nil), p.SupplierNITs...)
	cp.Flags = append(entity.Flags(nil), p.Flags...)
	return cp
}
