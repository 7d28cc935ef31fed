// Package onboarding orquesta una corrida de conciliación: normaliza los flujos de
// registros, construye y congela el registro de entidades, resuelve contra él el proveedor
// de cada fila del libro auxiliar, indexa el libro, puntúa las facturas con un pool acotado
// y resuelve en un solo hilo.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/ledger"
	"github.com/jhoicas/onboarding-contable/internal/domain/matching"
	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
	"github.com/jhoicas/onboarding-contable/internal/domain/reconcile"
	"github.com/jhoicas/onboarding-contable/internal/domain/registry"
	"github.com/jhoicas/onboarding-contable/pkg/config"
	"github.com/jhoicas/onboarding-contable/pkg/logger"
)

// Options parámetros de una corrida.
type Options struct {
	Registry   registry.Config
	Matching   matching.Config
	Resolver   reconcile.Config
	Workers    int
	PUCClasses []string // clases PUC del libro auxiliar a conciliar; vacío = todas
}

// DefaultOptions valores por defecto: gastos y costos (clases 5 y 6), un worker por factura
// hasta 4.
func DefaultOptions() Options {
	return Options{
		Registry:   registry.Config{MergeThreshold: registry.DefaultMergeThreshold},
		Matching:   matching.DefaultConfig(),
		Resolver:   reconcile.DefaultConfig(),
		Workers:    4,
		PUCClasses: []string{"5", "6"},
	}
}

// OptionsFromConfig traduce la configuración RECON_* a opciones de corrida.
func OptionsFromConfig(c config.ReconConfig) Options {
	o := DefaultOptions()
	o.Registry.MergeThreshold = c.MergeThreshold
	o.Matching.MinScore = c.MinScore
	o.Matching.AmountTolNear = c.AmountTolNear
	o.Matching.AmountTolFar = c.AmountTolFar
	o.Matching.DateWindowDays = c.DateWindowDays
	o.Resolver.AcceptThreshold = c.AcceptThreshold
	o.Resolver.Margin = c.Margin
	o.Resolver.MinScore = c.MinScore
	o.Workers = c.Workers
	o.PUCClasses = append([]string(nil), c.PUCClasses...)
	return o
}

// Result salida de una corrida.
type Result struct {
	RunID           string                     `json:"run_id"`
	ClientID        string                     `json:"client_id"`
	StartedAt       time.Time                  `json:"started_at"`
	FinishedAt      time.Time                  `json:"finished_at"`
	RegistryVersion int                        `json:"registry_version"`
	Records         []entity.MatchRecord       `json:"records"`
	Transactions    []entity.LedgerTransaction `json:"transactions"`
	Invoices        []entity.InvoiceDocument   `json:"invoices"`
	Suppliers       []entity.Supplier          `json:"suppliers"`
	CostEntries     []entity.CostEntry         `json:"cost_entries"`
	Summary         Summary                    `json:"summary"`
	Audit           []audit.Event              `json:"audit"`
}

// Pipeline caso de uso de conciliación. store y locker son opcionales.
type Pipeline struct {
	opts    Options
	log     *logger.Logger
	store   ResultStore
	locker  RunLocker
	clock   func() time.Time
	newID   func() string
	classes map[string]bool
}

// Option configura el Pipeline.
type Option func(*Pipeline)

// WithClock inyecta el reloj (timestamps de la corrida y de la bitácora).
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// WithRunID fija el generador de identificadores de corrida.
func WithRunID(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// NewPipeline construye el caso de uso.
func NewPipeline(opts Options, log *logger.Logger, store ResultStore, locker RunLocker, options ...Option) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pipeline{
		opts:   opts,
		log:    log.Component("pipeline"),
		store:  store,
		locker: locker,
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range options {
		o(p)
	}
	if len(opts.PUCClasses) > 0 {
		p.classes = make(map[string]bool, len(opts.PUCClasses))
		for _, c := range opts.PUCClasses {
			p.classes[c] = true
		}
	}
	return p
}

// Run ejecuta la corrida completa. Devuelve ledger.ErrNoTransactions (precondición) si el
// libro auxiliar queda vacío y domain.ErrRunLocked si ya hay una corrida del cliente.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if p.locker != nil && in.ClientID != "" {
		release, err := p.locker.Acquire(ctx, "onboarding:"+in.ClientID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				p.log.Warn().Err(err).Str("client_id", in.ClientID).Msg("no se pudo liberar el candado de la corrida")
			}
		}()
	}

	res := &Result{RunID: p.newID(), ClientID: in.ClientID, StartedAt: p.clock()}
	trail := audit.NewTrail(res.RunID, audit.WithClock(p.clock))
	log := p.log.With().Str("run_id", res.RunID).Str("client_id", in.ClientID).Logger()
	log.Info().Int("rows", in.Rows()).Msg("corrida iniciada")

	// 1. normalización (secuencial: fija el orden de la bitácora)
	phase := time.Now()
	b := normalizeInput(normalize.New(trail), in, p.classes)
	log.Info().
		Int("transactions", len(b.txs)).
		Int("invoices", len(b.invoices)).
		Int("filtered", b.filtered).
		Int("skipped", b.skipped).
		Dur("took", time.Since(phase)).
		Msg("flujos normalizados")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. registro de entidades y congelamiento
	phase = time.Now()
	reg := registry.New(p.opts.Registry, trail)
	if err := buildRegistry(ctx, reg, b); err != nil {
		return nil, fmt.Errorf("onboarding: %w", err)
	}
	snap := reg.Freeze()

	// 3. proveedor de las filas sin NIT contra el registro congelado; el índice se arma
	// después para que las agrupe bajo el proveedor resuelto
	txs := resolveSuppliers(snap, b.txs)
	idx, err := ledger.Build(txs, trail)
	if err != nil {
		if errors.Is(err, domain.ErrPrecondition) {
			log.Error().Err(err).Msg("corrida abortada")
		}
		return nil, fmt.Errorf("onboarding: %w", err)
	}
	log.Info().
		Int("registry_version", snap.Version()).
		Int("suppliers", len(snap.Suppliers())).
		Int("indexed", idx.Len()).
		Dur("took", time.Since(phase)).
		Msg("registro congelado e índice construido")

	// 4. matching en paralelo
	phase = time.Now()
	matcher := matching.New(p.opts.Matching, idx, trail)
	results, err := matcher.MatchAll(ctx, b.invoices, p.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("onboarding: %w", err)
	}
	var candidates []matching.Candidate
	for _, r := range results {
		candidates = append(candidates, r.Candidates...)
	}
	log.Info().Int("candidates", len(candidates)).Int("workers", p.opts.Workers).Dur("took", time.Since(phase)).Msg("facturas puntuadas")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 5. resolución secuencial y enriquecimiento
	records := reconcile.New(p.opts.Resolver, trail).Resolve(txs, b.invoices, candidates)
	enrich(records, snap, txs, b.invoices)

	res.RegistryVersion = snap.Version()
	res.Records = records
	res.Transactions = txs
	res.Invoices = b.invoices
	res.Suppliers = snap.Suppliers()
	res.CostEntries = snap.CostEntries()
	res.Summary = summarize(records, idx, b, snap)
	res.Audit = trail.Events()
	res.FinishedAt = p.clock()
	log.Info().
		Int("accepted", res.Summary.ByStatus[entity.MatchAccepted]).
		Int("ambiguous", res.Summary.ByStatus[entity.MatchAmbiguous]).
		Int("unmatched", res.Summary.ByStatus[entity.MatchUnmatched]).
		Int("audit_events", len(res.Audit)).
		Msg("conciliación terminada")

	if p.store != nil {
		if err := p.store.SaveRun(ctx, res); err != nil {
			return nil, fmt.Errorf("onboarding: guardar corrida: %w", err)
		}
	}
	return res, nil
}

// buildRegistry registra todo lo visto en la corrida; el orden de registro es el de los flujos.
// Los códigos PUC ilegibles del catálogo se omiten.
func buildRegistry(ctx context.Context, reg *registry.Registry, b *batch) error {
	for _, r := range b.pucs {
		var nerr *normalize.Error
		if err := reg.RegisterPUC(r.Code, r.Name); err != nil && !errors.As(err, &nerr) {
			return err
		}
	}
	for _, s := range b.sightings {
		if _, err := reg.RegisterSupplier(s.nit, s.name, s.attrs); err != nil && !errors.Is(err, domain.ErrInvalidInput) {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range b.costs {
		if err := reg.RegisterCostEntry(e); err != nil {
			return err
		}
	}
	for _, p := range b.products {
		if _, err := reg.RegisterProduct(p); err != nil && !errors.Is(err, domain.ErrInvalidInput) {
			return err
		}
	}
	return nil
}

// resolveSuppliers asigna proveedor a las transacciones que solo traen razón social.
func resolveSuppliers(snap *registry.Snapshot, in []entity.LedgerTransaction) []entity.LedgerTransaction {
	out := make([]entity.LedgerTransaction, len(in))
	copy(out, in)
	for i := range out {
		tx := &out[i]
		if tx.SupplierID != "" || tx.SupplierName == "" {
			continue
		}
		if id, err := snap.ResolveSupplier(tx.SupplierName); err == nil {
			tx.SupplierID = id
		}
	}
	return out
}

// enrich completa centro de costo (por la cuenta PUC de la transacción) y producto (por la
// descripción de la factura, entre los productos del proveedor).
func enrich(records []entity.MatchRecord, snap *registry.Snapshot, txs []entity.LedgerTransaction, invoices []entity.InvoiceDocument) {
	txByID := make(map[entity.TransactionID]*entity.LedgerTransaction, len(txs))
	for i := range txs {
		txByID[txs[i].ID] = &txs[i]
	}
	invByHandle := make(map[entity.InvoiceHandle]*entity.InvoiceDocument, len(invoices))
	for i := range invoices {
		invByHandle[invoices[i].Handle] = &invoices[i]
	}
	for i := range records {
		rec := &records[i]
		if tx, ok := txByID[rec.TransactionID]; ok {
			rec.CostCenter = snap.CostCenterFor(tx.PUC)
			if rec.SupplierID == "" {
				rec.SupplierID = tx.SupplierID
			}
		}
		if inv, ok := invByHandle[rec.InvoiceHandle]; ok && rec.SupplierID != "" {
			rec.ProductCode, _ = matching.ProductFor(snap, rec.SupplierID, inv.Description)
		}
	}
}
