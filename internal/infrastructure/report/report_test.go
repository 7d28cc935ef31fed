package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/infrastructure/report"
)

func sampleResult() *onboarding.Result {
	at := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	score := 0.99
	return &onboarding.Result{
		RunID:      "run-1",
		ClientID:   "cliente-1",
		StartedAt:  at,
		FinishedAt: at.Add(time.Second),
		Records: []entity.MatchRecord{
			{
				TransactionID: "aux.csv#5", Source: "aux.csv", Row: 5,
				InvoiceHandle: "facturas.zip!FV-1234.xml", Status: entity.MatchAccepted, Score: 0.99,
				Evidence: []string{entity.EvidenceNIT, entity.EvidenceInvoiceNumber}, SupplierID: "900123456",
				TransactionValue: decimal.NewNullDecimal(decimal.NewFromInt(1190000)),
				InvoiceTotal:     decimal.NewNullDecimal(decimal.RequireFromString("1190000.00")),
			},
			{TransactionID: "aux.csv#8", Source: "aux.csv", Row: 8, Status: entity.MatchUnmatched, Reason: "sin candidatos"},
		},
		Transactions: []entity.LedgerTransaction{
			{ID: "aux.csv#5", NIT: "900123456", PUC: "51352501", Value: decimal.NewFromInt(1190000), Date: at},
			{ID: "aux.csv#8", PUC: "6135", Value: decimal.NewFromInt(75000), Flags: entity.Flags{entity.FlagMissingNIT}},
		},
		Suppliers: []entity.Supplier{{ID: "900123456", NIT: "900123456-8", LegalName: "Ferretería El Tornillo S.A.S."}},
		Summary: onboarding.Summary{
			Transactions:  2,
			Invoices:      1,
			Suppliers:     1,
			ByStatus:      map[entity.MatchStatus]int{entity.MatchAccepted: 1, entity.MatchUnmatched: 1},
			AcceptedValue: decimal.NewFromInt(1190000),
			ByClass: []onboarding.ClassSummary{
				{Class: "5", Name: "Gastos", Transactions: 1, Accepted: 1, Value: decimal.NewFromInt(1190000)},
				{Class: "6", Name: "Costos de ventas", Transactions: 1, Value: decimal.NewFromInt(75000)},
			},
		},
		Audit: []audit.Event{
			{Seq: 1, RunID: "run-1", Component: "resolver", Kind: audit.KindTransition, Subject: "aux.csv#5",
				Score: &score, Fields: map[string]string{"to": "Accepted", "from": "Candidate"}},
		},
	}
}

// ─── Formatos ─────────────────────────────────────────────────────────────────

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want report.Format
	}{
		{"", report.FormatJSON},
		{"JSON", report.FormatJSON},
		{" xlsx ", report.FormatXLSX},
		{"pdf", report.FormatPDF},
	}
	for _, tt := range tests {
		got, err := report.ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := report.ParseFormat("csv")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "application/pdf", report.FormatPDF.ContentType())
	assert.Equal(t, ".xlsx", report.FormatXLSX.Ext())
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func TestWriteJSON_MontosComoCadenas(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf, sampleResult(), false))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "run-1", out["run_id"])
	assert.NotContains(t, out, "audit")

	records := out["records"].([]interface{})
	first := records[0].(map[string]interface{})
	assert.Equal(t, "Accepted", first["status"])
	assert.Equal(t, "1190000", first["transaction_value"])
	assert.Equal(t, "1190000", first["invoice_total"])

	second := records[1].(map[string]interface{})
	assert.NotContains(t, second, "invoice_total")

	txs := out["transactions"].([]interface{})
	assert.NotContains(t, txs[1].(map[string]interface{}), "date", "la fecha vacía se omite")
}

func TestWrite_JSONIncluyeBitacora(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(context.Background(), &buf, sampleResult(), report.FormatJSON))
	assert.Contains(t, buf.String(), `"kind": "resolver.transition"`)
}

// ─── XLSX ─────────────────────────────────────────────────────────────────────

func TestXLSX_Hojas(t *testing.T) {
	b, err := report.XLSX(sampleResult())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		report.SheetSummary, report.SheetRecords, report.SheetSuppliers, report.SheetTransactions, report.SheetAudit,
	}, f.GetSheetList())

	rows, err := f.GetRows(report.SheetRecords)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "aux.csv#5", rows[1][0])
	assert.Equal(t, "Accepted", rows[1][4])
	assert.Equal(t, "nit,invoiceNumber", rows[1][10])

	summary, err := f.GetRows(report.SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Corrida", "run-1"}, summary[0])

	auditRows, err := f.GetRows(report.SheetAudit)
	require.NoError(t, err)
	require.Len(t, auditRows, 2)
	assert.Equal(t, "from=Candidate to=Accepted", auditRows[1][6])
}

// ─── PDF ──────────────────────────────────────────────────────────────────────

func TestPDF_GeneraDocumento(t *testing.T) {
	b, err := report.PDF(context.Background(), sampleResult())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}
