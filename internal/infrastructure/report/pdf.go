package report

// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Cliente + corrida      │  Fechas de la corrida      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CONTEOS: transacciones / facturas / proveedores / estados   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA CLASES: Clase | Nombre | Tx | Conciliadas | Valor     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  PENDIENTES: Transacción | Estado | Puntaje | Motivo         │
//	└─────────────────────────────────────────────────────────────┘

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
)

// maxPendingRows tope de registros pendientes listados en el PDF; el detalle completo va en el XLSX.
const maxPendingRows = 60

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// PDF resumen imprimible de la corrida.
func PDF(_ context.Context, res *onboarding.Result) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Conciliación de proveedores", true).
		WithAuthor(res.ClientID, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(res))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(countRows(res.Summary)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow("Clase", "Nombre", "Transacciones", "Conciliadas", "Valor"))
	m.AddRows(classRows(res.Summary.ByClass)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(pendingRows(res.Records)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("report: pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(res *onboarding.Result) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("CONCILIACIÓN DE PROVEEDORES", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Cliente: "+nonEmpty(res.ClientID, "-"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Corrida "+res.RunID, props.Text{
				Style: fontstyle.Bold, Size: 7, Align: align.Right, Top: 1,
			}),
			text.New("Inicio: "+res.StartedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 7, Color: colorGray,
			}),
			text.New("Fin: "+res.FinishedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 12, Color: colorGray,
			}),
		),
	)
}

func countRows(s onboarding.Summary) []core.Row {
	pair := func(label string, v interface{}) core.Col {
		return col.New(3).Add(
			text.New(label, props.Text{Size: 7, Color: colorGray, Top: 1}),
			text.New(fmt.Sprint(v), props.Text{Style: fontstyle.Bold, Size: 11, Top: 5}),
		)
	}
	return []core.Row{
		row.New(14).Add(
			pair("Transacciones", s.Transactions),
			pair("Facturas", s.Invoices),
			pair("Proveedores", fmt.Sprintf("%d (%d prov.)", s.Suppliers, s.Provisional)),
			pair("Valor conciliado", "$"+formatDecimal(s.AcceptedValue)),
		),
		row.New(14).Add(
			pair("Conciliadas", s.ByStatus[entity.MatchAccepted]),
			pair("Ambiguas", s.ByStatus[entity.MatchAmbiguous]),
			pair("Sin conciliar", s.ByStatus[entity.MatchUnmatched]),
			pair("Filas filtradas / omitidas", fmt.Sprintf("%d / %d", s.FilteredRows, s.SkippedRows)),
		),
	}
}

func tableHeaderRow(labels ...string) core.Row {
	sizes := []int{1, 5, 2, 2, 2}
	cols := make([]core.Col, len(labels))
	for i, l := range labels {
		a := align.Left
		if i >= 2 {
			a = align.Right
		}
		cols[i] = col.New(sizes[i]).Add(text.New(l, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(cols...)
}

func classRows(classes []onboarding.ClassSummary) []core.Row {
	out := make([]core.Row, 0, len(classes))
	for _, c := range classes {
		out = append(out, row.New(7).Add(
			col.New(1).Add(text.New(c.Class, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(5).Add(text.New(nonEmpty(c.Name, "-"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(fmt.Sprint(c.Transactions), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(fmt.Sprint(c.Accepted), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New("$"+formatDecimal(c.Value), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return out
}

// pendingRows registros ambiguos y sin conciliar del lado de las transacciones.
func pendingRows(records []entity.MatchRecord) []core.Row {
	out := []core.Row{
		row.New(7).Add(col.New(12).Add(text.New("PENDIENTES DE REVISIÓN", props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
		}))),
	}
	n := 0
	for _, r := range records {
		if r.TransactionID == "" || r.Status == entity.MatchAccepted {
			continue
		}
		if n == maxPendingRows {
			out = append(out, row.New(5).Add(col.New(12).Add(text.New(
				"... ver el detalle completo en el XLSX", props.Text{Size: 7, Color: colorGray, Top: 1},
			))))
			break
		}
		n++
		out = append(out, row.New(5).Add(
			col.New(3).Add(text.New(string(r.TransactionID), props.Text{Size: 7, Top: 0.5, Left: 1})),
			col.New(2).Add(text.New(string(r.Status), props.Text{Size: 7, Top: 0.5})),
			col.New(1).Add(text.New(fmt.Sprintf("%.2f", r.Score), props.Text{Size: 7, Align: align.Right, Top: 0.5})),
			col.New(6).Add(text.New(nonEmpty(r.Reason, string(r.InvoiceHandle)), props.Text{Size: 7, Color: colorGray, Top: 0.5, Left: 2})),
		))
	}
	if n == 0 {
		out = append(out, row.New(6).Add(col.New(12).Add(text.New(
			"Todas las transacciones quedaron conciliadas.", props.Text{Size: 8, Top: 1},
		))))
	}
	return out
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatDecimal valor sin decimales con puntos de miles; conserva el signo.
func formatDecimal(d decimal.Decimal) string {
	s := d.Abs().StringFixed(0)
	if d.IsNegative() && s != "0" {
		return "-" + formatMoney(s)
	}
	return formatMoney(s)
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatMoney(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
