// Package reconcile aplica la política de aceptación sobre los candidatos del matcher:
// confirma pares uno a uno, deja para revisión manual los ambiguos y marca sin pareja
// lo que sobra a cada lado. Es el único punto secuencial de la corrida.
package reconcile

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/matching"
)

const component = "resolver"

// Reglas de transición.
const (
	RuleCandidateFound     = "candidateFound"
	RuleAccepted           = "acceptance"
	RuleBelowAcceptance    = "belowAcceptance"
	RuleInsufficientMargin = "insufficientMargin"
	RuleTransactionClaimed = "transactionClaimed"
	RuleInvoiceClaimed     = "invoiceClaimed"
	RuleNoCandidates       = "noCandidates"
	RuleAllRejected        = "allCandidatesRejected"
)

// Config umbrales de aceptación.
type Config struct {
	AcceptThreshold float64 // 0.85
	Margin          float64 // 0.15 sobre el segundo mejor
	MinScore        float64 // 0.5: por debajo el par no existe
}

// DefaultConfig valores por defecto.
func DefaultConfig() Config {
	return Config{AcceptThreshold: 0.85, Margin: 0.15, MinScore: 0.5}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AcceptThreshold <= 0 {
		c.AcceptThreshold = d.AcceptThreshold
	}
	if c.Margin <= 0 {
		c.Margin = d.Margin
	}
	if c.MinScore <= 0 {
		c.MinScore = d.MinScore
	}
	return c
}

// Resolver máquina de estados Unmatched -> Candidate -> {Accepted | Ambiguous | Rejected}.
type Resolver struct {
	cfg Config
	rec audit.Recorder
}

// New crea el resolvedor.
func New(cfg Config, rec audit.Recorder) *Resolver {
	if rec == nil {
		rec = audit.Discard
	}
	return &Resolver{cfg: cfg.withDefaults(), rec: rec}
}

type pair struct {
	c        matching.Candidate
	status   entity.MatchStatus
	rule     string
	reason   string
	runnerUp float64
}

type run struct {
	*Resolver
	txs        map[entity.TransactionID]entity.LedgerTransaction
	invoices   map[entity.InvoiceHandle]entity.InvoiceDocument
	byTx       map[entity.TransactionID][]*pair
	byInv      map[entity.InvoiceHandle][]*pair
	claimedTx  map[entity.TransactionID]entity.InvoiceHandle
	claimedInv map[entity.InvoiceHandle]entity.TransactionID
}

// Resolve decide el estado de cada par candidato y agrega los registros Unmatched de cada lado.
// El orden de salida es el de resolución (mejor puntaje primero), luego las transacciones y
// facturas sin pareja en el orden de entrada.
func (r *Resolver) Resolve(txs []entity.LedgerTransaction, invoices []entity.InvoiceDocument, candidates []matching.Candidate) []entity.MatchRecord {
	st := &run{
		Resolver:   r,
		txs:        make(map[entity.TransactionID]entity.LedgerTransaction, len(txs)),
		invoices:   make(map[entity.InvoiceHandle]entity.InvoiceDocument, len(invoices)),
		byTx:       make(map[entity.TransactionID][]*pair),
		byInv:      make(map[entity.InvoiceHandle][]*pair),
		claimedTx:  make(map[entity.TransactionID]entity.InvoiceHandle),
		claimedInv: make(map[entity.InvoiceHandle]entity.TransactionID),
	}
	for _, tx := range txs {
		st.txs[tx.ID] = tx
	}
	for _, inv := range invoices {
		st.invoices[inv.Handle] = inv
	}

	sorted := append([]matching.Candidate(nil), candidates...)
	matching.SortCandidates(sorted)
	for _, c := range sorted {
		if c.Score < r.cfg.MinScore {
			continue
		}
		p := &pair{c: c, status: entity.MatchCandidate, rule: RuleCandidateFound}
		st.byTx[c.Transaction] = append(st.byTx[c.Transaction], p)
		st.byInv[c.Invoice] = append(st.byInv[c.Invoice], p)
		st.transition(p, entity.MatchUnmatched, "")
	}

	order := st.order()
	for _, id := range order {
		st.resolveTransaction(id)
	}
	st.sweep(order)
	return st.records(order, txs, invoices)
}

// order transacciones con candidatos: mejor puntaje descendente, fecha más temprana, ID.
func (st *run) order() []entity.TransactionID {
	ids := make([]entity.TransactionID, 0, len(st.byTx))
	for id := range st.byTx {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := st.byTx[ids[i]][0].c, st.byTx[ids[j]][0].c
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.TxDate.Equal(b.TxDate) {
			if a.TxDate.IsZero() != b.TxDate.IsZero() {
				return b.TxDate.IsZero()
			}
			return a.TxDate.Before(b.TxDate)
		}
		return ids[i] < ids[j]
	})
	return ids
}

func (st *run) resolveTransaction(id entity.TransactionID) {
	var live []*pair
	for _, p := range st.byTx[id] {
		if other, ok := st.claimedInv[p.c.Invoice]; ok {
			st.reject(p, RuleInvoiceClaimed, fmt.Sprintf("la factura ya fue aceptada con %s", other))
			continue
		}
		live = append(live, p)
	}
	if len(live) == 0 {
		return
	}

	top := live[0]
	runnerUp := 0.0
	for _, p := range live[1:] {
		runnerUp = math.Max(runnerUp, p.c.Score)
	}
	// competidores por la misma factura desde otras transacciones aún libres
	for _, p := range st.byInv[top.c.Invoice] {
		if p == top || p.status == entity.MatchRejected {
			continue
		}
		if _, claimed := st.claimedTx[p.c.Transaction]; claimed {
			continue
		}
		runnerUp = math.Max(runnerUp, p.c.Score)
	}
	margin := round4(top.c.Score - runnerUp)
	top.runnerUp = runnerUp

	if top.c.Score >= st.cfg.AcceptThreshold && margin >= st.cfg.Margin {
		st.claimedTx[id] = top.c.Invoice
		st.claimedInv[top.c.Invoice] = id
		top.status, top.rule = entity.MatchAccepted, RuleAccepted
		top.reason = fmt.Sprintf("puntaje %.4f >= %.2f y margen %.4f >= %.2f", top.c.Score, st.cfg.AcceptThreshold, margin, st.cfg.Margin)
		st.transition(top, entity.MatchCandidate, fmt.Sprintf("%.4f", margin))
		for _, p := range live[1:] {
			st.reject(p, RuleTransactionClaimed, fmt.Sprintf("la transacción ya fue aceptada con %s", top.c.Invoice))
		}
		return
	}

	for _, p := range live {
		p.status = entity.MatchAmbiguous
		if p.c.Score < st.cfg.AcceptThreshold {
			p.rule = RuleBelowAcceptance
			p.reason = fmt.Sprintf("puntaje %.4f < %.2f: requiere revisión manual", p.c.Score, st.cfg.AcceptThreshold)
		} else {
			p.rule = RuleInsufficientMargin
			p.reason = fmt.Sprintf("margen %.4f < %.2f sobre el segundo mejor (%.4f): requiere revisión manual", margin, st.cfg.Margin, runnerUp)
		}
		st.transition(p, entity.MatchCandidate, fmt.Sprintf("%.4f", margin))
	}
}

// sweep los ambiguos cuyo lado quedó tomado por un par aceptado posterior pasan a Rejected.
func (st *run) sweep(order []entity.TransactionID) {
	for _, id := range order {
		for _, p := range st.byTx[id] {
			if p.status != entity.MatchAmbiguous {
				continue
			}
			if inv, ok := st.claimedTx[p.c.Transaction]; ok && inv != p.c.Invoice {
				st.reject(p, RuleTransactionClaimed, fmt.Sprintf("la transacción fue aceptada con %s", inv))
				continue
			}
			if tx, ok := st.claimedInv[p.c.Invoice]; ok && tx != p.c.Transaction {
				st.reject(p, RuleInvoiceClaimed, fmt.Sprintf("la factura fue aceptada con %s", tx))
			}
		}
	}
}

func (st *run) reject(p *pair, rule, reason string) {
	from := p.status
	p.status, p.rule, p.reason = entity.MatchRejected, rule, reason
	st.transition(p, from, "")
}

func (st *run) transition(p *pair, from entity.MatchStatus, margin string) {
	fields := map[string]string{
		"transaction": string(p.c.Transaction),
		"invoice":     string(p.c.Invoice),
		"from":        string(from),
		"to":          string(p.status),
	}
	if p.reason != "" {
		fields["reason"] = p.reason
	}
	if margin != "" {
		fields["margin"] = margin
		fields["runner_up"] = fmt.Sprintf("%.4f", p.runnerUp)
	}
	st.rec.Record(audit.Event{
		Component: component,
		Kind:      audit.KindTransition,
		Rule:      p.rule,
		Subject:   string(p.c.Transaction),
		Score:     audit.Score(p.c.Score),
		Fields:    fields,
	})
}

func (st *run) records(order []entity.TransactionID, txs []entity.LedgerTransaction, invoices []entity.InvoiceDocument) []entity.MatchRecord {
	var out []entity.MatchRecord
	settledTx := make(map[entity.TransactionID]bool)
	settledInv := make(map[entity.InvoiceHandle]bool)
	for _, id := range order {
		for _, p := range st.byTx[id] {
			if p.status == entity.MatchAccepted || p.status == entity.MatchAmbiguous {
				settledTx[p.c.Transaction] = true
				settledInv[p.c.Invoice] = true
			}
			out = append(out, st.pairRecord(p))
		}
	}

	for _, tx := range txs {
		if settledTx[tx.ID] {
			continue
		}
		rule := RuleNoCandidates
		if len(st.byTx[tx.ID]) > 0 {
			rule = RuleAllRejected
		}
		rec := entity.MatchRecord{
			TransactionID:    tx.ID,
			Source:           tx.Source,
			Row:              tx.Row,
			Status:           entity.MatchUnmatched,
			Rule:             rule,
			Reason:           "transacción sin factura",
			SupplierID:       tx.SupplierID,
			TransactionValue: decimal.NewNullDecimal(tx.Value),
		}
		st.unmatched(string(tx.ID), rule, map[string]string{"transaction": string(tx.ID)})
		out = append(out, rec)
	}
	for _, inv := range invoices {
		if settledInv[inv.Handle] {
			continue
		}
		rule := RuleNoCandidates
		if len(st.byInv[inv.Handle]) > 0 {
			rule = RuleAllRejected
		}
		rec := entity.MatchRecord{
			InvoiceHandle: inv.Handle,
			Status:        entity.MatchUnmatched,
			Rule:          rule,
			Reason:        "factura sin transacción",
			InvoiceTotal:  inv.Total,
		}
		if inv.NIT != "" {
			rec.SupplierID = entity.SupplierID(inv.NIT)
		}
		st.unmatched(string(inv.Handle), rule, map[string]string{"invoice": string(inv.Handle)})
		out = append(out, rec)
	}
	return out
}

func (st *run) pairRecord(p *pair) entity.MatchRecord {
	rec := entity.MatchRecord{
		TransactionID: p.c.Transaction,
		InvoiceHandle: p.c.Invoice,
		Status:        p.status,
		Score:         p.c.Score,
		Breakdown:     p.c.Breakdown,
		Evidence:      append([]string(nil), p.c.Evidence...),
		Rule:          p.rule,
		Reason:        p.reason,
		SupplierID:    p.c.SupplierID,
	}
	if tx, ok := st.txs[p.c.Transaction]; ok {
		rec.Source, rec.Row = tx.Source, tx.Row
		rec.TransactionValue = decimal.NewNullDecimal(tx.Value)
		if rec.SupplierID == "" {
			rec.SupplierID = tx.SupplierID
		}
	}
	if inv, ok := st.invoices[p.c.Invoice]; ok {
		rec.InvoiceTotal = inv.Total
	}
	return rec
}

func (st *run) unmatched(subject, rule string, fields map[string]string) {
	fields["from"] = string(entity.MatchUnmatched)
	fields["to"] = string(entity.MatchUnmatched)
	st.rec.Record(audit.Event{
		Component: component,
		Kind:      audit.KindTransition,
		Rule:      rule,
		Subject:   subject,
		Fields:    fields,
	})
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
