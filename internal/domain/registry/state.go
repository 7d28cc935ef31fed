package registry

import (
	"sort"
	"strings"

	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
	"github.com/jhoicas/onboarding-contable/pkg/dian"
)

// state datos del registro. Registry lo muta bajo su mutex; Snapshot tiene una copia
// profunda que nadie vuelve a escribir.
type state struct {
	threshold float64
	version   int // número de escrituras aceptadas

	suppliers      map[entity.SupplierID]*entity.Supplier
	supplierOrder  []entity.SupplierID
	byNameKey      map[string]entity.SupplierID // NameKey exacto -> proveedor
	provisionalSeq int

	products           map[string]*entity.Product
	productOrder       []string
	productsBySupplier map[entity.SupplierID][]string

	costEntries []*entity.CostEntry
	chart       map[string]string // código PUC -> nombre
}

func newState(threshold float64) *state {
	st := &state{
		threshold:          threshold,
		suppliers:          make(map[entity.SupplierID]*entity.Supplier),
		byNameKey:          make(map[string]entity.SupplierID),
		products:           make(map[string]*entity.Product),
		productsBySupplier: make(map[entity.SupplierID][]string),
		chart:              make(map[string]string),
	}
	for class, name := range dian.PUCClasses {
		st.chart[class] = name
	}
	return st
}

// resolveSupplier: si la entrada parece un NIT se busca por la base; si no, por razón social.
func (st *state) resolveSupplier(nitOrName string) (entity.SupplierID, error) {
	if looksLikeNIT(nitOrName) {
		n, err := normalize.ParseNIT(nitOrName)
		if err != nil {
			return "", domain.ErrNotFound
		}
		if _, ok := st.suppliers[entity.SupplierID(n.Base)]; ok {
			return entity.SupplierID(n.Base), nil
		}
		return "", domain.ErrNotFound
	}
	if id, _, ok := st.bestByName(nitOrName); ok {
		return id, nil
	}
	return "", domain.ErrNotFound
}

// bestByName proveedor con mayor similitud de razón social por encima del umbral.
// Empates: el primero registrado.
func (st *state) bestByName(name string) (entity.SupplierID, float64, bool) {
	key := NameKey(name)
	if key == "" {
		return "", 0, false
	}
	if id, ok := st.byNameKey[key]; ok {
		return id, 1, true
	}
	var best entity.SupplierID
	bestScore := 0.0
	for _, id := range st.supplierOrder {
		s := st.suppliers[id]
		score := st.similarityTo(s, name)
		if score > bestScore {
			best, bestScore = id, score
		}
	}
	if bestScore >= st.threshold {
		return best, bestScore, true
	}
	return "", bestScore, false
}

// similarityTo máxima similitud entre name y la razón social o los alias del proveedor.
func (st *state) similarityTo(s *entity.Supplier, name string) float64 {
	best := NameSimilarity(s.LegalName, name)
	for _, a := range s.Aliases {
		if v := NameSimilarity(a, name); v > best {
			best = v
		}
	}
	return best
}

func (st *state) clone() *state {
	c := &state{
		threshold:          st.threshold,
		version:            st.version,
		suppliers:          make(map[entity.SupplierID]*entity.Supplier, len(st.suppliers)),
		supplierOrder:      append([]entity.SupplierID(nil), st.supplierOrder...),
		byNameKey:          make(map[string]entity.SupplierID, len(st.byNameKey)),
		provisionalSeq:     st.provisionalSeq,
		products:           make(map[string]*entity.Product, len(st.products)),
		productOrder:       append([]string(nil), st.productOrder...),
		productsBySupplier: make(map[entity.SupplierID][]string, len(st.productsBySupplier)),
		costEntries:        make([]*entity.CostEntry, len(st.costEntries)),
		chart:              make(map[string]string, len(st.chart)),
	}
	for id, s := range st.suppliers {
		cp := copySupplier(s)
		c.suppliers[id] = &cp
	}
	for k, v := range st.byNameKey {
		c.byNameKey[k] = v
	}
	for code, p := range st.products {
		cp := copyProduct(p)
		c.products[code] = &cp
	}
	for id, codes := range st.productsBySupplier {
		c.productsBySupplier[id] = append([]string(nil), codes...)
	}
	for i, e := range st.costEntries {
		cp := *e
		cp.Flags = append(entity.Flags(nil), e.Flags...)
		c.costEntries[i] = &cp
	}
	for k, v := range st.chart {
		c.chart[k] = v
	}
	return c
}

// looksLikeNIT: solo dígitos y separadores (opcionalmente con prefijo NIT/CC), al menos 5 dígitos.
func looksLikeNIT(s string) bool {
	u := strings.ToUpper(strings.TrimSpace(s))
	for _, p := range []string{"NIT", "CC", "C.C."} {
		u = strings.TrimSpace(strings.TrimPrefix(u, p))
	}
	if u == "" {
		return false
	}
	for _, r := range u {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != ' ' && r != ',' {
			return false
		}
	}
	return len(dian.ExtractDigits(u)) >= 5
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
