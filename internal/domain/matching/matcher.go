// Package matching genera y puntúa los candidatos (transacción del libro auxiliar) de cada
// factura de proveedor. No decide: el estado final lo asigna el resolvedor.
package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/ledger"
)

const component = "matcher"

// Reglas de generación de candidatos.
const (
	RuleByNIT          = "byNIT"
	RuleAmountAndDate  = "amountAndDate"
	RuleNoIdentifiers  = "noIdentifyingFields"
	RuleNoLedgerForNIT = "noLedgerForNIT"
	RuleBelowFloor     = "belowFloor"
)

// Candidate par (factura, transacción) con su puntaje.
type Candidate struct {
	Invoice     entity.InvoiceHandle
	Transaction entity.TransactionID
	Score       float64
	Breakdown   entity.ScoreBreakdown
	Evidence    []string
	Rule        string
	TxDate      time.Time
	SupplierID  entity.SupplierID
}

// Result candidatos de una factura, mejor primero.
type Result struct {
	Invoice    entity.InvoiceDocument
	Candidates []Candidate
	Rule       string
}

// Matcher lee el índice congelado del libro auxiliar; es seguro para uso concurrente.
type Matcher struct {
	cfg Config
	idx *ledger.Index
	rec audit.Recorder
}

// New crea el matcher.
func New(cfg Config, idx *ledger.Index, rec audit.Recorder) *Matcher {
	if rec == nil {
		rec = audit.Discard
	}
	return &Matcher{cfg: cfg.withDefaults(), idx: idx, rec: rec}
}

// Config configuración efectiva (con valores por defecto aplicados).
func (m *Matcher) Config() Config { return m.cfg }

// Match candidatos de la factura por encima del piso, mejor primero, y los registra en la auditoría.
func (m *Matcher) Match(inv entity.InvoiceDocument) []Candidate {
	r := m.match(inv)
	m.record(r)
	return r.Candidates
}

// MatchAll puntúa todas las facturas en paralelo con a lo sumo workers goroutines.
// El resultado conserva el orden de invoices y la auditoría se escribe después, en ese
// mismo orden, de modo que no depende de la planificación.
func (m *Matcher) MatchAll(ctx context.Context, invoices []entity.InvoiceDocument, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(invoices))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range invoices {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = m.match(invoices[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("matching: %w", err)
	}
	for _, r := range results {
		m.record(r)
	}
	return results, nil
}

func (m *Matcher) match(inv entity.InvoiceDocument) Result {
	res := Result{Invoice: inv}
	if !inv.HasIdentifyingFields() {
		res.Rule = RuleNoIdentifiers
		return res
	}

	var pool []entity.LedgerTransaction
	if inv.NIT != "" {
		res.Rule = RuleByNIT
		pool = m.idx.BySupplier(entity.SupplierID(inv.NIT))
		if len(pool) == 0 {
			res.Rule = RuleNoLedgerForNIT
			return res
		}
	} else {
		res.Rule = RuleAmountAndDate
		pool = m.fallbackPool(inv)
	}

	for _, tx := range pool {
		b, ev := Score(m.cfg, inv, tx)
		total := round4(b.Total())
		if total < m.cfg.MinScore {
			continue
		}
		sup := ledger.SupplierOf(tx)
		res.Candidates = append(res.Candidates, Candidate{
			Invoice:     inv.Handle,
			Transaction: tx.ID,
			Score:       total,
			Breakdown:   b,
			Evidence:    ev,
			Rule:        res.Rule,
			TxDate:      tx.Date,
			SupplierID:  sup,
		})
	}
	SortCandidates(res.Candidates)
	if len(res.Candidates) == 0 && len(pool) > 0 {
		res.Rule = RuleBelowFloor
	}
	return res
}

// fallbackPool sin NIT: intersección del rango de monto (tolerancia lejana) y la ventana de
// fechas. Si la factura solo trae uno de los dos datos se usa ese.
func (m *Matcher) fallbackPool(inv entity.InvoiceDocument) []entity.LedgerTransaction {
	var byAmount, byDate []entity.LedgerTransaction
	if inv.Total.Valid {
		total := inv.Total.Decimal.Abs()
		tol := total.Mul(decimal.NewFromFloat(m.cfg.AmountTolFar))
		byAmount = m.idx.ByAmountRange(total.Sub(tol), total.Add(tol))
	}
	if !inv.Date.IsZero() {
		window := time.Duration(m.cfg.DateWindowDays) * 24 * time.Hour
		byDate = m.idx.ByDateRange(inv.Date.Add(-window), inv.Date.Add(window))
	}
	switch {
	case !inv.Total.Valid:
		return byDate
	case inv.Date.IsZero():
		return byAmount
	}
	inDate := make(map[entity.TransactionID]bool, len(byDate))
	for _, tx := range byDate {
		inDate[tx.ID] = true
	}
	out := byAmount[:0]
	for _, tx := range byAmount {
		if inDate[tx.ID] {
			out = append(out, tx)
		}
	}
	return out
}

// SortCandidates orden total y determinista: puntaje descendente, fecha de la transacción más
// temprana, ID de transacción y handle de factura.
func SortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		if !c[i].TxDate.Equal(c[j].TxDate) {
			if c[i].TxDate.IsZero() != c[j].TxDate.IsZero() {
				return c[j].TxDate.IsZero()
			}
			return c[i].TxDate.Before(c[j].TxDate)
		}
		if c[i].Transaction != c[j].Transaction {
			return c[i].Transaction < c[j].Transaction
		}
		return c[i].Invoice < c[j].Invoice
	})
}

func (m *Matcher) record(r Result) {
	subject := string(r.Invoice.Handle)
	if len(r.Candidates) == 0 {
		m.rec.Record(audit.Event{
			Component: component,
			Kind:      audit.KindNoCandidates,
			Rule:      r.Rule,
			Subject:   subject,
			Fields:    map[string]string{"nit": r.Invoice.NIT},
		})
		return
	}
	for rank, c := range r.Candidates {
		m.rec.Record(audit.Event{
			Component: component,
			Kind:      audit.KindCandidateScore,
			Rule:      c.Rule,
			Subject:   subject,
			Score:     audit.Score(c.Score),
			Fields: map[string]string{
				"transaction": string(c.Transaction),
				"rank":        fmt.Sprint(rank + 1),
				"nit":         fmt.Sprintf("%.4f", c.Breakdown.NIT),
				"amount":      fmt.Sprintf("%.4f", c.Breakdown.Amount),
				"date":        fmt.Sprintf("%.4f", c.Breakdown.Date),
				"description": fmt.Sprintf("%.4f", c.Breakdown.Description),
				"evidence":    strings.Join(c.Evidence, ","),
			},
		})
	}
}
