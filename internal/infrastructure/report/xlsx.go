package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
)

// Hojas del libro de resultados.
const (
	SheetSummary      = "Resumen"
	SheetRecords      = "Conciliacion"
	SheetSuppliers    = "Proveedores"
	SheetTransactions = "Transacciones"
	SheetAudit        = "Bitacora"
)

// XLSX libro con el resumen, la conciliación, los proveedores, las transacciones y la bitácora.
func XLSX(res *onboarding.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", err)
	}
	for _, s := range []string{SheetRecords, SheetSuppliers, SheetTransactions, SheetAudit} {
		if _, err := f.NewSheet(s); err != nil {
			return nil, fmt.Errorf("report: xlsx: hoja %s: %w", s, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("report: xlsx: estilo: %w", err)
	}

	w := &sheetWriter{f: f, bold: bold}
	w.summary(res)
	w.records(res.Records)
	w.suppliers(res.Suppliers)
	w.transactions(res.Transactions)
	w.audit(res)
	if w.err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("report: xlsx: escribir: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter acumula el primer error para no chequear cada celda.
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *sheetWriter) row(sheet string, n int, values ...interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) header(sheet string, n int, titles ...string) {
	values := make([]interface{}, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	w.row(sheet, n, values...)
	if w.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, n)
	last, _ := excelize.CoordinatesToCellName(len(titles), n)
	w.err = w.f.SetCellStyle(sheet, first, last, w.bold)
}

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

func nullMoney(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return ""
	}
	return money(d.Decimal)
}

func (w *sheetWriter) summary(res *onboarding.Result) {
	s := res.Summary
	n := 1
	kv := func(k string, v interface{}) {
		w.row(SheetSummary, n, k, v)
		n++
	}
	kv("Corrida", res.RunID)
	kv("Cliente", res.ClientID)
	kv("Inicio", res.StartedAt.Format("2006-01-02 15:04:05"))
	kv("Fin", res.FinishedAt.Format("2006-01-02 15:04:05"))
	kv("Transacciones", s.Transactions)
	kv("Facturas", s.Invoices)
	kv("Proveedores", s.Suppliers)
	kv("Proveedores provisionales", s.Provisional)
	kv("Productos", s.Products)
	kv("Entradas de causación", s.CostEntries)
	kv("Filas filtradas", s.FilteredRows)
	kv("Filas omitidas", s.SkippedRows)
	kv("Transacciones con alertas", s.FlaggedTx)
	kv("Valor conciliado", money(s.AcceptedValue))
	for _, st := range []entity.MatchStatus{entity.MatchAccepted, entity.MatchAmbiguous, entity.MatchUnmatched} {
		kv("Estado "+string(st), s.ByStatus[st])
	}

	n++
	w.header(SheetSummary, n, "Clase", "Nombre", "Transacciones", "Conciliadas", "Valor")
	n++
	for _, c := range s.ByClass {
		w.row(SheetSummary, n, c.Class, c.Name, c.Transactions, c.Accepted, money(c.Value))
		n++
	}
}

func (w *sheetWriter) records(records []entity.MatchRecord) {
	w.header(SheetRecords, 1, "Transacción", "Archivo", "Fila", "Factura", "Estado", "Puntaje",
		"Puntaje NIT", "Puntaje valor", "Puntaje fecha", "Puntaje descripción", "Evidencia", "Regla", "Motivo",
		"Proveedor", "Producto", "Centro de costo", "Valor transacción", "Total factura")
	for i, r := range records {
		b := r.Breakdown
		w.row(SheetRecords, i+2,
			string(r.TransactionID), r.Source, r.Row, string(r.InvoiceHandle), string(r.Status), r.Score,
			b.NIT, b.Amount, b.Date, b.Description, strings.Join(r.Evidence, ","), r.Rule, r.Reason,
			string(r.SupplierID), r.ProductCode, r.CostCenter, nullMoney(r.TransactionValue), nullMoney(r.InvoiceTotal))
	}
}

func (w *sheetWriter) suppliers(suppliers []entity.Supplier) {
	w.header(SheetSuppliers, 1, "ID", "NIT", "Razón social", "Sucursal", "Responsabilidades",
		"Actividad", "Ciudad", "Alias", "Alertas")
	for i, s := range suppliers {
		w.row(SheetSuppliers, i+2, string(s.ID), s.NIT, s.LegalName, s.Branch,
			strings.Join(s.FiscalResponsibilities, ";"), s.EconomicActivity, s.City,
			strings.Join(s.Aliases, " | "), strings.Join(s.Flags.Strings(), ","))
	}
}

func (w *sheetWriter) transactions(txs []entity.LedgerTransaction) {
	w.header(SheetTransactions, 1, "ID", "NIT", "Proveedor", "Nombre", "PUC", "Fecha", "Valor",
		"Descripción", "Factura", "Alertas")
	for i, tx := range txs {
		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.Format("2006-01-02")
		}
		w.row(SheetTransactions, i+2, string(tx.ID), tx.NIT, string(tx.SupplierID), tx.SupplierName,
			tx.PUC, date, money(tx.Value), tx.Description, tx.InvoiceRef, strings.Join(tx.Flags.Strings(), ","))
	}
}

func (w *sheetWriter) audit(res *onboarding.Result) {
	w.header(SheetAudit, 1, "Seq", "Componente", "Tipo", "Regla", "Sujeto", "Puntaje", "Detalle")
	for i, e := range res.Audit {
		var score interface{} = ""
		if e.Score != nil {
			score = *e.Score
		}
		w.row(SheetAudit, i+2, e.Seq, e.Component, string(e.Kind), e.Rule, e.Subject, score, fields(e.Fields))
	}
}

// fields "k=v" ordenado por clave.
func fields(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, " ")
}
