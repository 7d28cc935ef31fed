package onboarding

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/ledger"
	"github.com/jhoicas/onboarding-contable/internal/domain/registry"
)

const unclassified = "?"

// pucClasses primer dígito de las cuentas del PUC.
var pucClasses = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}

// ClassSummary totales por clase PUC (primer dígito de la cuenta).
type ClassSummary struct {
	Class        string          `json:"class"`
	Name         string          `json:"name"`
	Transactions int             `json:"transactions"`
	Accepted     int             `json:"accepted"`
	Value        decimal.Decimal `json:"value"`
}

// Summary conteos de la corrida.
type Summary struct {
	Transactions  int                        `json:"transactions"`
	Invoices      int                        `json:"invoices"`
	Suppliers     int                        `json:"suppliers"`
	Provisional   int                        `json:"provisional_suppliers"`
	Products      int                        `json:"products"`
	CostEntries   int                        `json:"cost_entries"`
	FilteredRows  int                        `json:"filtered_rows"`
	SkippedRows   int                        `json:"skipped_rows"`
	FlaggedTx     int                        `json:"flagged_transactions"`
	ByStatus      map[entity.MatchStatus]int `json:"by_status"`
	ByClass       []ClassSummary             `json:"by_puc_class"`
	AcceptedValue decimal.Decimal            `json:"accepted_value"`
}

// summarize arma los conteos; los totales por clase PUC salen del índice del libro auxiliar.
func summarize(records []entity.MatchRecord, idx *ledger.Index, b *batch, snap *registry.Snapshot) Summary {
	txs := idx.All()
	s := Summary{
		Transactions:  len(txs),
		Invoices:      len(b.invoices),
		Products:      len(snap.Products()),
		CostEntries:   len(b.costs),
		FilteredRows:  b.filtered,
		SkippedRows:   b.skipped,
		ByStatus:      make(map[entity.MatchStatus]int),
		AcceptedValue: decimal.Zero,
	}
	for _, sup := range snap.Suppliers() {
		s.Suppliers++
		if sup.Flags.Has(entity.FlagProvisional) {
			s.Provisional++
		}
	}
	for _, tx := range txs {
		if len(tx.Flags) > 0 {
			s.FlaggedTx++
		}
	}

	classes := make(map[string]*ClassSummary)
	classOf := make(map[entity.TransactionID]string, len(txs))
	add := func(key string, tx entity.LedgerTransaction) {
		c, ok := classes[key]
		if !ok {
			name, _ := snap.PUCName(key)
			c = &ClassSummary{Class: key, Name: name, Value: decimal.Zero}
			classes[key] = c
		}
		c.Transactions++
		c.Value = c.Value.Add(tx.Value)
		classOf[tx.ID] = key
	}
	for _, key := range pucClasses {
		for _, tx := range idx.ByPUC(key) {
			add(key, tx)
		}
	}
	// sin PUC legible
	for _, tx := range txs {
		if _, ok := classOf[tx.ID]; !ok {
			add(unclassified, tx)
		}
	}

	for _, r := range records {
		s.ByStatus[r.Status]++
		if r.Status != entity.MatchAccepted {
			continue
		}
		if c, ok := classes[classOf[r.TransactionID]]; ok {
			c.Accepted++
		}
		if r.TransactionValue.Valid {
			s.AcceptedValue = s.AcceptedValue.Add(r.TransactionValue.Decimal)
		}
	}

	for _, c := range classes {
		s.ByClass = append(s.ByClass, *c)
	}
	sort.Slice(s.ByClass, func(i, j int) bool { return s.ByClass[i].Class < s.ByClass[j].Class })
	return s
}
