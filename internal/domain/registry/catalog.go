package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
)

// ProductKey identidad del producto: el código explícito o la tupla nombre|línea|unidad normalizada.
func ProductKey(p entity.Product) string {
	if code := strings.ToUpper(strings.TrimSpace(p.Code)); code != "" {
		return code
	}
	return normalize.Text(p.Name) + "|" + normalize.Text(p.Line) + "|" + normalize.Text(p.UnitMeasure)
}

// RegisterProduct registra o completa un producto del catálogo. El precio negativo se guarda
// como cero con la marca negativePrice. Devuelve la clave del producto.
func (r *Registry) RegisterProduct(p entity.Product) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writable(); err != nil {
		return "", err
	}
	if strings.TrimSpace(p.Code) == "" && strings.TrimSpace(p.Name) == "" {
		return "", fmt.Errorf("%w: producto sin código ni nombre", domain.ErrInvalidInput)
	}
	key := ProductKey(p)
	p.Price = p.Price.Round(normalize.CurrencyScale)
	if p.Price.IsNegative() {
		p.Price = decimal.Zero
		p.Flags.Add(entity.FlagNegativePrice)
	}
	st := r.st

	existing, ok := st.products[key]
	if !ok {
		cp := p
		cp.Code = key
		cp.SupplierNITs = nil
		cp.Flags = append(entity.Flags(nil), p.Flags...)
		st.products[key] = &cp
		st.productOrder = append(st.productOrder, key)
		existing = &cp
	} else {
		fillProduct(existing, p)
	}
	for _, nit := range p.SupplierNITs {
		base := normalize.NITBase(nit)
		if base == "" || containsString(existing.SupplierNITs, base) {
			continue
		}
		existing.SupplierNITs = append(existing.SupplierNITs, base)
		id := entity.SupplierID(base)
		st.productsBySupplier[id] = append(st.productsBySupplier[id], key)
	}
	st.version++
	return key, nil
}

func fillProduct(dst *entity.Product, src entity.Product) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Price.IsZero() && !src.Price.IsZero() {
		dst.Price = src.Price
	}
	if dst.Line == "" {
		dst.Line = src.Line
	}
	if dst.Group == "" {
		dst.Group = src.Group
	}
	if dst.UnitMeasure == "" {
		dst.UnitMeasure = src.UnitMeasure
	}
	for _, f := range src.Flags {
		dst.Flags.Add(f)
	}
}

// RegisterPUC agrega una cuenta al plan de cuentas (catálogo PUC del cliente).
func (r *Registry) RegisterPUC(code, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writable(); err != nil {
		return err
	}
	p, err := normalize.ParsePUC(code)
	if err != nil {
		return err
	}
	if cur, ok := r.st.chart[p.Code]; !ok || cur == "" {
		r.st.chart[p.Code] = strings.TrimSpace(name)
	}
	r.st.version++
	return nil
}

// RegisterCostEntry agrega una fila del modelo de causación. El PUC de la entrada entra al
// plan de cuentas; la jerarquía y los conflictos de centros de costo se validan en Freeze.
func (r *Registry) RegisterCostEntry(e entity.CostEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writable(); err != nil {
		return err
	}
	if e.PUC == "" {
		return fmt.Errorf("%w: entrada sin código PUC", domain.ErrInvalidInput)
	}
	cp := e
	cp.Flags = append(entity.Flags(nil), e.Flags...)
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("%s#%d", e.Source, e.Row)
	}
	r.st.costEntries = append(r.st.costEntries, &cp)
	if cur, ok := r.st.chart[cp.PUC]; !ok || cur == "" {
		r.st.chart[cp.PUC] = cp.PUCName
	}
	r.st.version++
	return nil
}

// checkHierarchy marca missingParent en las entradas cuyo padre no existe en el plan de cuentas.
func (r *Registry) checkHierarchy() {
	for _, e := range r.st.costEntries {
		parent := normalize.PUCParent(e.PUC)
		if parent == "" {
			continue
		}
		if _, ok := r.st.chart[parent]; ok {
			continue
		}
		e.Flags.Add(entity.FlagMissingParent)
		r.event(audit.KindStructural, "missingParent", e.ID, nil, map[string]string{
			"puc":    e.PUC,
			"parent": parent,
			"source": e.Source,
		})
	}
}

// checkCostCenterConflicts: un PUC cuyos centros de costo difieren entre archivos queda marcado
// en todas sus entradas. Se conservan todas las asignaciones.
func (r *Registry) checkCostCenterConflicts() {
	bySource := make(map[string]map[string]map[string]bool) // puc -> source -> centros
	for _, e := range r.st.costEntries {
		if e.CostCenter == "" {
			continue
		}
		srcs, ok := bySource[e.PUC]
		if !ok {
			srcs = make(map[string]map[string]bool)
			bySource[e.PUC] = srcs
		}
		if srcs[e.Source] == nil {
			srcs[e.Source] = make(map[string]bool)
		}
		srcs[e.Source][e.CostCenterKey()] = true
	}

	pucs := make([]string, 0, len(bySource))
	for puc := range bySource {
		pucs = append(pucs, puc)
	}
	sort.Strings(pucs)
	for _, puc := range pucs {
		srcs := bySource[puc]
		if len(srcs) < 2 {
			continue
		}
		mappings := make(map[string]string, len(srcs))
		distinct := make(map[string]bool)
		for src, centers := range srcs {
			m := strings.Join(sortedKeys(centers), ";")
			mappings[src] = m
			distinct[m] = true
		}
		if len(distinct) < 2 {
			continue
		}
		for _, e := range r.st.costEntries {
			if e.PUC == puc {
				e.Flags.Add(entity.FlagCostCenterConflict)
			}
		}
		fields := map[string]string{"puc": puc}
		for src, m := range mappings {
			fields["source:"+src] = m
		}
		r.event(audit.KindCostCenterConflict, "costCenterConflict", puc, nil, fields)
	}
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
