package matching_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/ledger"
	"github.com/jhoicas/onboarding-contable/internal/domain/matching"
)

func date(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

func money(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func ledgerTx(row int, nit string, d time.Time, value, desc string) entity.LedgerTransaction {
	return entity.LedgerTransaction{
		ID:          entity.NewTransactionID("aux.csv", row),
		NIT:         nit,
		Date:        d,
		Value:       decimal.RequireFromString(value),
		Description: desc,
		Row:         row,
	}
}

func buildMatcher(t *testing.T, rec audit.Recorder, txs ...entity.LedgerTransaction) *matching.Matcher {
	t.Helper()
	idx, err := ledger.Build(txs, nil)
	require.NoError(t, err)
	return matching.New(matching.DefaultConfig(), idx, rec)
}

// ─── Puntaje ────────────────────────────────────────────────────────────────

func TestMatch_NITMontoYFechaCercana(t *testing.T) {
	m := buildMatcher(t, nil,
		ledgerTx(2, "900123456", date(3, 10), "1250000.00", ""),
		ledgerTx(3, "800197268", date(3, 10), "1250000.00", ""),
	)
	inv := entity.InvoiceDocument{Handle: "f.zip!fe1.xml", NIT: "900123456", Total: money("1250000"), Date: date(3, 12)}

	got := m.Match(inv)
	require.Len(t, got, 1, "solo candidatos del mismo NIT")
	c := got[0]
	assert.Equal(t, entity.TransactionID("aux.csv#2"), c.Transaction)
	assert.Equal(t, 0.89, c.Score)
	assert.Equal(t, entity.ScoreBreakdown{NIT: 0.4, Amount: 0.35, Date: 0.14}, c.Breakdown)
	assert.Equal(t, []string{entity.EvidenceNIT, entity.EvidenceAmountExact, entity.EvidenceDate}, c.Evidence)
	assert.Equal(t, matching.RuleByNIT, c.Rule)
	assert.Equal(t, entity.SupplierID("900123456"), c.SupplierID)
}

func TestScore_BandasDeMonto(t *testing.T) {
	cfg := matching.DefaultConfig()
	inv := entity.InvoiceDocument{Total: money("1000000")}
	cases := []struct {
		value  string
		amount float64
		ev     string
	}{
		{"1000000", 0.35, entity.EvidenceAmountExact},
		{"-1000000", 0.35, entity.EvidenceAmountExact},
		{"1005000", 0.245, entity.EvidenceAmountNear},
		{"970000", 0.105, entity.EvidenceAmountFar},
		{"900000", 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			b, ev := matching.Score(cfg, inv, entity.LedgerTransaction{Value: decimal.RequireFromString(tc.value)})
			assert.Equal(t, tc.amount, b.Amount)
			if tc.ev == "" {
				assert.Empty(t, ev)
			} else {
				assert.Equal(t, []string{tc.ev}, ev)
			}
		})
	}
}

func TestScore_FechaDecaeLinealmente(t *testing.T) {
	cfg := matching.DefaultConfig()
	inv := entity.InvoiceDocument{Date: date(3, 1)}
	b, _ := matching.Score(cfg, inv, entity.LedgerTransaction{Date: date(3, 1)})
	assert.Equal(t, 0.15, b.Date)
	b, _ = matching.Score(cfg, inv, entity.LedgerTransaction{Date: date(3, 16)})
	assert.Equal(t, 0.075, b.Date)
	b, ev := matching.Score(cfg, inv, entity.LedgerTransaction{Date: date(3, 31)})
	assert.Zero(t, b.Date)
	assert.Empty(t, ev)
}

func TestScore_Descripcion(t *testing.T) {
	cfg := matching.DefaultConfig()

	b, ev := matching.Score(cfg,
		entity.InvoiceDocument{Number: "FE-1234"},
		entity.LedgerTransaction{InvoiceRef: "FE1234", Description: "FRA FE-1234"})
	assert.Equal(t, 0.1, b.Description)
	assert.Equal(t, []string{entity.EvidenceInvoiceNumber}, ev)

	b, ev = matching.Score(cfg,
		entity.InvoiceDocument{Description: "Arrendamiento local comercial"},
		entity.LedgerTransaction{Description: "PAGO ARRENDAMIENTO LOCAL MARZO"})
	assert.Equal(t, 0.0667, b.Description)
	assert.Equal(t, []string{entity.EvidenceDescription}, ev)
}

// ─── Generación de candidatos ───────────────────────────────────────────────

func TestMatch_NITSinMovimientosDescarta(t *testing.T) {
	trail := audit.NewTrail("t")
	m := buildMatcher(t, trail, ledgerTx(2, "900123456", date(3, 10), "1250000", ""))

	got := m.Match(entity.InvoiceDocument{Handle: "z!a", NIT: "800197268", Total: money("1250000"), Date: date(3, 10)})
	assert.Empty(t, got)
	events := trail.Filter(audit.KindNoCandidates)
	require.Len(t, events, 1)
	assert.Equal(t, matching.RuleNoLedgerForNIT, events[0].Rule)
}

func TestMatch_FilaSinNITResueltaPorElRegistro(t *testing.T) {
	sinNIT := ledgerTx(5, "", date(3, 10), "1250000.00", "")
	sinNIT.SupplierName = "FERRETERIA EL TORNILLO SAS"
	sinNIT.SupplierID = "900123456"
	otro := ledgerTx(6, "", date(3, 10), "1250000.00", "")
	otro.SupplierID = "SIN-NIT-0001"
	m := buildMatcher(t, nil, sinNIT, otro)

	got := m.Match(entity.InvoiceDocument{Handle: "f.zip!a.xml", NIT: "900123456", Total: money("1250000"), Date: date(3, 10)})
	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, entity.TransactionID("aux.csv#5"), c.Transaction)
	assert.Equal(t, 0.9, c.Score)
	assert.Equal(t, []string{entity.EvidenceSupplierAlias, entity.EvidenceAmountExact, entity.EvidenceDate}, c.Evidence)
	assert.Equal(t, matching.RuleByNIT, c.Rule)
	assert.Equal(t, entity.SupplierID("900123456"), c.SupplierID)
}

func TestMatch_SinNITUsaMontoYFecha(t *testing.T) {
	m := buildMatcher(t, nil,
		ledgerTx(2, "900123456", date(3, 10), "1250000", "FRA FE-1234 ARRENDAMIENTO"),
		ledgerTx(3, "800197268", date(5, 30), "1250000", "FRA FE-1234"),
		ledgerTx(4, "800197268", date(3, 12), "1300000", "FRA FE-1234"),
	)
	inv := entity.InvoiceDocument{Handle: "z!b", Number: "FE-1234", Total: money("1250000"), Date: date(3, 12)}

	got := m.Match(inv)
	require.Len(t, got, 1)
	assert.Equal(t, entity.TransactionID("aux.csv#2"), got[0].Transaction)
	assert.Equal(t, 0.59, got[0].Score)
	assert.Equal(t, matching.RuleAmountAndDate, got[0].Rule)
}

func TestMatch_SinCamposIdentificadores(t *testing.T) {
	trail := audit.NewTrail("t")
	m := buildMatcher(t, trail, ledgerTx(2, "900123456", date(3, 10), "1250000", ""))

	assert.Empty(t, m.Match(entity.InvoiceDocument{Handle: "z!vacia.pdf", Description: "sin datos"}))
	events := trail.Filter(audit.KindNoCandidates)
	require.Len(t, events, 1)
	assert.Equal(t, matching.RuleNoIdentifiers, events[0].Rule)
}

func TestMatch_SinNITYFechaFueraDeVentana(t *testing.T) {
	m := buildMatcher(t, nil, ledgerTx(2, "900123456", date(3, 10), "1250000", ""))
	assert.Empty(t, m.Match(entity.InvoiceDocument{Handle: "z!c", Total: money("1250000"), Date: date(8, 1)}))
}

func TestSortCandidates_DesempatePorFechaEID(t *testing.T) {
	c := []matching.Candidate{
		{Transaction: "a#3", Score: 0.8, TxDate: date(3, 5)},
		{Transaction: "a#2", Score: 0.8, TxDate: date(3, 5)},
		{Transaction: "a#1", Score: 0.8, TxDate: date(3, 9)},
		{Transaction: "a#4", Score: 0.9, TxDate: date(3, 20)},
		{Transaction: "a#5", Score: 0.8},
	}
	matching.SortCandidates(c)
	var order []entity.TransactionID
	for _, x := range c {
		order = append(order, x.Transaction)
	}
	assert.Equal(t, []entity.TransactionID{"a#4", "a#2", "a#3", "a#1", "a#5"}, order)
}

// ─── Paralelismo ────────────────────────────────────────────────────────────

func TestMatchAll_DeterministaEntreCorridas(t *testing.T) {
	var txs []entity.LedgerTransaction
	var invoices []entity.InvoiceDocument
	for i := 0; i < 40; i++ {
		nit := "900123456"
		if i%2 == 0 {
			nit = "800197268"
		}
		value := fmt.Sprintf("%d000", 100+i%7)
		txs = append(txs, ledgerTx(i+2, nit, date(3, 1+i%20), value, ""))
		invoices = append(invoices, entity.InvoiceDocument{
			Handle: entity.NewInvoiceHandle("lote.zip", fmt.Sprintf("f%02d.xml", i)),
			NIT:    nit,
			Total:  money(value),
			Date:   date(3, 2+i%20),
		})
	}
	clock := func() time.Time { return date(1, 1) }

	run := func(workers int) ([]matching.Result, []audit.Event) {
		trail := audit.NewTrail("run", audit.WithClock(clock))
		m := buildMatcher(t, trail, txs...)
		res, err := m.MatchAll(context.Background(), invoices, workers)
		require.NoError(t, err)
		return res, trail.Events()
	}
	seqRes, seqEvents := run(1)
	parRes, parEvents := run(8)
	assert.Equal(t, seqRes, parRes)
	assert.Equal(t, seqEvents, parEvents)
	for i, r := range parRes {
		assert.Equal(t, invoices[i].Handle, r.Invoice.Handle)
	}
}

func TestMatchAll_ContextoCancelado(t *testing.T) {
	m := buildMatcher(t, nil, ledgerTx(2, "900123456", date(3, 10), "1", ""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.MatchAll(ctx, []entity.InvoiceDocument{{NIT: "900123456"}}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

// ─── Productos ──────────────────────────────────────────────────────────────

type fakeCatalog map[entity.SupplierID][]entity.Product

func (f fakeCatalog) ProductsBySupplier(id entity.SupplierID) []entity.Product { return f[id] }

func TestProductFor(t *testing.T) {
	cat := fakeCatalog{"900123456": {
		{Code: "P1", Name: "Cemento gris 50kg"},
		{Code: "P2", Name: "Arena de rio", Description: "m3"},
		{Code: "P3", Name: "Cemento blanco"},
	}}
	code, score := matching.ProductFor(cat, "900123456", "Suministro cemento blanco obra")
	assert.Equal(t, "P3", code)
	assert.Equal(t, 1.0, score)

	code, _ = matching.ProductFor(cat, "900123456", "servicio de transporte")
	assert.Equal(t, "", code)
	code, _ = matching.ProductFor(cat, "", "cemento")
	assert.Equal(t, "", code)
}
