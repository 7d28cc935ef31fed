package matching

import (
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
)

// ProductCatalog lo que el mapeo de productos necesita del registro congelado.
type ProductCatalog interface {
	ProductsBySupplier(id entity.SupplierID) []entity.Product
}

// ProductFor producto del proveedor cuyo nombre y descripción comparten más tokens con la
// descripción de la factura. Empates: el primero registrado. Devuelve "" sin coincidencias.
func ProductFor(cat ProductCatalog, supplier entity.SupplierID, description string) (string, float64) {
	if cat == nil || supplier == "" {
		return "", 0
	}
	want := normalize.Tokens(description)
	if len(want) == 0 {
		return "", 0
	}
	set := make(map[string]bool, len(want))
	for _, t := range want {
		set[t] = true
	}
	best, bestScore := "", 0.0
	for _, p := range cat.ProductsBySupplier(supplier) {
		tokens := normalize.Tokens(p.Name + " " + p.Description)
		if len(tokens) == 0 {
			continue
		}
		seen := make(map[string]bool, len(tokens))
		inter := 0
		for _, t := range tokens {
			if set[t] && !seen[t] {
				inter++
			}
			seen[t] = true
		}
		score := round4(float64(inter) / float64(len(seen)))
		if score > bestScore {
			best, bestScore = p.Code, score
		}
	}
	return best, bestScore
}
