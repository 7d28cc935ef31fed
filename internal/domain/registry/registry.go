// Package registry deduplica e indexa proveedores, productos, entradas del modelo de
// causación y el plan de cuentas, a partir de identificadores normalizados.
//
// El registro se construye en dos pasadas: primero se recolectan todas las fuentes y
// luego Freeze entrega un Snapshot inmutable que es el único que leen el matcher y el
// resolvedor. Después de Freeze cualquier escritura devuelve domain.ErrRegistryFrozen.
package registry

import (
	"fmt"
	"sync"

	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
)

const component = "registry"

// Config umbrales del registro.
type Config struct {
	MergeThreshold float64 // similitud mínima de razón social para fusionar (por defecto 0.92)
}

// Registry registro en construcción. Es seguro para uso concurrente.
type Registry struct {
	mu     sync.Mutex
	cfg    Config
	rec    audit.Recorder
	norm   *normalize.Normalizer
	st     *state
	frozen *Snapshot
}

// New crea un registro vacío.
func New(cfg Config, rec audit.Recorder) *Registry {
	if cfg.MergeThreshold <= 0 || cfg.MergeThreshold > 1 {
		cfg.MergeThreshold = DefaultMergeThreshold
	}
	if rec == nil {
		rec = audit.Discard
	}
	return &Registry{cfg: cfg, rec: rec, norm: normalize.New(rec), st: newState(cfg.MergeThreshold)}
}

// Freeze valida la jerarquía del PUC y los conflictos de centros de costo y devuelve el
// Snapshot inmutable. Llamadas sucesivas devuelven el mismo Snapshot.
func (r *Registry) Freeze() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen != nil {
		return r.frozen
	}
	r.checkHierarchy()
	r.checkCostCenterConflicts()
	r.frozen = &Snapshot{st: r.st.clone()}
	r.rec.Record(audit.Event{
		Component: component,
		Kind:      audit.KindRegistryFrozen,
		Subject:   fmt.Sprintf("v%d", r.st.version),
		Fields: map[string]string{
			"suppliers":    fmt.Sprint(len(r.st.supplierOrder)),
			"products":     fmt.Sprint(len(r.st.productOrder)),
			"cost_entries": fmt.Sprint(len(r.st.costEntries)),
			"puc_accounts": fmt.Sprint(len(r.st.chart)),
		},
	})
	return r.frozen
}

// Frozen indica si ya se llamó Freeze.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen != nil
}

// ResolveSupplier busca por NIT (exacto) o por razón social (similitud >= umbral).
// Devuelve domain.ErrNotFound si no hay coincidencia.
func (r *Registry) ResolveSupplier(nitOrName string) (entity.SupplierID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.resolveSupplier(nitOrName)
}

// writable se llama con el mutex tomado.
func (r *Registry) writable() error {
	if r.frozen != nil {
		return domain.ErrRegistryFrozen
	}
	return nil
}

func (r *Registry) event(kind audit.Kind, rule, subject string, score *float64, fields map[string]string) {
	r.rec.Record(audit.Event{
		Component: component,
		Kind:      kind,
		Rule:      rule,
		Subject:   subject,
		Score:     score,
		Fields:    fields,
	})
}
