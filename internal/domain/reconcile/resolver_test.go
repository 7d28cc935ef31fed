package reconcile_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/matching"
	"github.com/jhoicas/onboarding-contable/internal/domain/reconcile"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	txs      []entity.LedgerTransaction
	invoices []entity.InvoiceDocument
	cands    []matching.Candidate
}

func (f *fixture) tx(id string, d int) {
	f.txs = append(f.txs, entity.LedgerTransaction{
		ID: entity.TransactionID(id), Date: day(d), Value: decimal.NewFromInt(1000), Source: "aux.csv",
	})
}

func (f *fixture) inv(handle string) {
	f.invoices = append(f.invoices, entity.InvoiceDocument{
		Handle: entity.InvoiceHandle(handle),
		Total:  decimal.NewNullDecimal(decimal.NewFromInt(1000)),
	})
}

func (f *fixture) cand(tx, inv string, score float64) {
	var date time.Time
	for _, t := range f.txs {
		if string(t.ID) == tx {
			date = t.Date
		}
	}
	f.cands = append(f.cands, matching.Candidate{
		Transaction: entity.TransactionID(tx), Invoice: entity.InvoiceHandle(inv), Score: score, TxDate: date,
	})
}

func (f *fixture) resolve(rec audit.Recorder) []entity.MatchRecord {
	return reconcile.New(reconcile.DefaultConfig(), rec).Resolve(f.txs, f.invoices, f.cands)
}

func statusOf(records []entity.MatchRecord, tx, inv string) entity.MatchStatus {
	for _, r := range records {
		if string(r.TransactionID) == tx && string(r.InvoiceHandle) == inv {
			return r.Status
		}
	}
	return ""
}

func find(records []entity.MatchRecord, tx, inv string) entity.MatchRecord {
	for _, r := range records {
		if string(r.TransactionID) == tx && string(r.InvoiceHandle) == inv {
			return r
		}
	}
	return entity.MatchRecord{}
}

// ─── Transiciones ───────────────────────────────────────────────────────────

func TestResolve_CandidatoFuerteSeAcepta(t *testing.T) {
	var f fixture
	f.tx("T1", 10)
	f.inv("I1")
	f.cand("T1", "I1", 0.89)

	trail := audit.NewTrail("t")
	records := f.resolve(trail)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, entity.MatchAccepted, r.Status)
	assert.Equal(t, reconcile.RuleAccepted, r.Rule)
	assert.Equal(t, "aux.csv", r.Source)
	assert.True(t, r.TransactionValue.Valid)
	assert.True(t, r.InvoiceTotal.Valid)

	events := trail.Filter(audit.KindTransition)
	require.Len(t, events, 2)
	assert.Equal(t, "Unmatched", events[0].Fields["from"])
	assert.Equal(t, "Candidate", events[0].Fields["to"])
	assert.Equal(t, "Accepted", events[1].Fields["to"])
	assert.Equal(t, "0.8900", events[1].Fields["margin"])
}

func TestResolve_DosFacturasEmpatadasSonAmbiguas(t *testing.T) {
	var f fixture
	f.tx("T1", 10)
	f.tx("T2", 11)
	f.inv("I1")
	f.inv("I2")
	f.inv("I3")
	f.cand("T1", "I1", 0.80)
	f.cand("T1", "I2", 0.80)
	f.cand("T2", "I3", 0.60)

	records := f.resolve(nil)
	assert.Equal(t, entity.MatchAmbiguous, statusOf(records, "T1", "I1"))
	assert.Equal(t, entity.MatchAmbiguous, statusOf(records, "T1", "I2"))
	assert.Equal(t, entity.MatchAmbiguous, statusOf(records, "T2", "I3"))
	assert.Len(t, records, 3, "los ambiguos no generan registros Unmatched")
}

func TestResolve_MargenInsuficiente(t *testing.T) {
	var f fixture
	f.tx("T1", 10)
	f.inv("I1")
	f.inv("I2")
	f.cand("T1", "I1", 0.95)
	f.cand("T1", "I2", 0.85)

	records := f.resolve(nil)
	r := find(records, "T1", "I1")
	assert.Equal(t, entity.MatchAmbiguous, r.Status)
	assert.Equal(t, reconcile.RuleInsufficientMargin, r.Rule)
	assert.Equal(t, reconcile.RuleInsufficientMargin, find(records, "T1", "I2").Rule)
}

func TestResolve_CompetidorPorLaMismaFactura(t *testing.T) {
	var f fixture
	f.tx("T1", 10)
	f.tx("T2", 12)
	f.inv("I1")
	f.cand("T1", "I1", 0.95)
	f.cand("T2", "I1", 0.90)

	records := f.resolve(nil)
	assert.Equal(t, entity.MatchAmbiguous, statusOf(records, "T1", "I1"))
	assert.Equal(t, entity.MatchAmbiguous, statusOf(records, "T2", "I1"))
}

func TestResolve_LadoTomadoSeRechaza(t *testing.T) {
	var f fixture
	f.tx("T1", 10)
	f.tx("T2", 11)
	f.inv("I1")
	f.inv("I2")
	f.cand("T1", "I1", 0.95)
	f.cand("T2", "I1", 0.60)
	f.cand("T2", "I2", 0.90)

	records := f.resolve(nil)
	assert.Equal(t, entity.MatchAccepted, statusOf(records, "T1", "I1"))
	assert.Equal(t, entity.MatchAccepted, statusOf(records, "T2", "I2"))
	rejected := find(records, "T2", "I1")
	assert.Equal(t, entity.MatchRejected, rejected.Status)
	assert.Equal(t, reconcile.RuleInvoiceClaimed, rejected.Rule)
	assert.Contains(t, rejected.Reason, "T1")
}

func TestResolve_BarridoFinalRechazaAmbiguosTomados(t *testing.T) {
	var f fixture
	f.tx("T1", 10)
	f.tx("T2", 11)
	f.inv("I1")
	f.inv("I2")
	f.inv("I3")
	f.cand("T1", "I1", 0.95)
	f.cand("T1", "I3", 0.90)
	f.cand("T1", "I2", 0.70)
	f.cand("T2", "I2", 0.92)

	trail := audit.NewTrail("t")
	records := f.resolve(trail)
	assert.Equal(t, entity.MatchAmbiguous, statusOf(records, "T1", "I1"))
	assert.Equal(t, entity.MatchAmbiguous, statusOf(records, "T1", "I3"))
	assert.Equal(t, entity.MatchAccepted, statusOf(records, "T2", "I2"))
	swept := find(records, "T1", "I2")
	assert.Equal(t, entity.MatchRejected, swept.Status)
	assert.Equal(t, reconcile.RuleInvoiceClaimed, swept.Rule)

	var fromAmbiguous int
	for _, e := range trail.Filter(audit.KindTransition) {
		if e.Fields["from"] == "Ambiguous" && e.Fields["to"] == "Rejected" {
			fromAmbiguous++
		}
	}
	assert.Equal(t, 1, fromAmbiguous)
}

func TestResolve_BajoElPisoQuedaSinPareja(t *testing.T) {
	var f fixture
	f.tx("T1", 10)
	f.inv("I1")
	f.cand("T1", "I1", 0.45)

	records := f.resolve(nil)
	require.Len(t, records, 2)
	assert.Equal(t, entity.MatchUnmatched, records[0].Status)
	assert.Equal(t, entity.TransactionID("T1"), records[0].TransactionID)
	assert.Equal(t, reconcile.RuleNoCandidates, records[0].Rule)
	assert.Equal(t, entity.MatchUnmatched, records[1].Status)
	assert.Equal(t, entity.InvoiceHandle("I1"), records[1].InvoiceHandle)
}

func TestResolve_TodosRechazadosQuedaSinPareja(t *testing.T) {
	var f fixture
	f.tx("T1", 10)
	f.tx("T2", 11)
	f.inv("I1")
	f.cand("T1", "I1", 0.95)
	f.cand("T2", "I1", 0.55)

	records := f.resolve(nil)
	assert.Equal(t, entity.MatchAccepted, statusOf(records, "T1", "I1"))
	assert.Equal(t, entity.MatchRejected, statusOf(records, "T2", "I1"))
	last := records[len(records)-1]
	assert.Equal(t, entity.TransactionID("T2"), last.TransactionID)
	assert.Empty(t, last.InvoiceHandle)
	assert.Equal(t, reconcile.RuleAllRejected, last.Rule)
}

// ─── Orden y determinismo ───────────────────────────────────────────────────

func TestResolve_EmpateSeOrdenaPorFechaNoPorEntrada(t *testing.T) {
	build := func(reverse bool) []entity.MatchRecord {
		var f fixture
		f.tx("Ta", 20)
		f.tx("Tb", 5)
		f.inv("I1")
		f.inv("I2")
		if reverse {
			f.cand("Tb", "I2", 0.90)
			f.cand("Ta", "I1", 0.90)
		} else {
			f.cand("Ta", "I1", 0.90)
			f.cand("Tb", "I2", 0.90)
		}
		return f.resolve(nil)
	}
	a, b := build(false), build(true)
	assert.Equal(t, a, b)
	require.Len(t, a, 2)
	assert.Equal(t, entity.TransactionID("Tb"), a[0].TransactionID, "la transacción más antigua primero")
}

func TestResolve_AceptadosSonUnoAUno(t *testing.T) {
	var f fixture
	for i := 0; i < 25; i++ {
		f.tx(fmt.Sprintf("T%02d", i), 1+i%28)
		f.inv(fmt.Sprintf("I%02d", i))
	}
	for i := 0; i < 25; i++ {
		for j := 0; j < 25; j++ {
			score := float64((i*7+j*13)%50+50) / 100
			f.cand(fmt.Sprintf("T%02d", i), fmt.Sprintf("I%02d", j), score)
		}
	}
	records := f.resolve(nil)

	txs := map[entity.TransactionID]bool{}
	invs := map[entity.InvoiceHandle]bool{}
	for _, r := range records {
		if r.Status != entity.MatchAccepted {
			continue
		}
		assert.False(t, txs[r.TransactionID], "transacción aceptada dos veces: %s", r.TransactionID)
		assert.False(t, invs[r.InvoiceHandle], "factura aceptada dos veces: %s", r.InvoiceHandle)
		txs[r.TransactionID] = true
		invs[r.InvoiceHandle] = true
		assert.GreaterOrEqual(t, r.Score, 0.85)
	}
	for _, r := range records {
		if r.Score < 0.5 && r.TransactionID != "" && r.InvoiceHandle != "" {
			t.Errorf("par bajo el piso en la salida: %+v", r)
		}
	}
}
