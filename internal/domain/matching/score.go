package matching

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
)

// Puntajes por banda de diferencia de monto.
const (
	amountExact = 1.0
	amountNear  = 0.7
	amountFar   = 0.3
)

// Score calcula el desglose de puntaje entre una factura y una transacción.
// Es una función pura: mismas entradas, mismo resultado.
func Score(cfg Config, inv entity.InvoiceDocument, tx entity.LedgerTransaction) (entity.ScoreBreakdown, []string) {
	cfg = cfg.withDefaults()
	var b entity.ScoreBreakdown
	var evidence []string

	switch {
	case inv.NIT == "":
	case inv.NIT == tx.NIT:
		b.NIT = cfg.WeightNIT
		evidence = append(evidence, entity.EvidenceNIT)
	case tx.NIT == "" && tx.SupplierID == entity.SupplierID(inv.NIT):
		// la identidad la fijó el registro
		b.NIT = cfg.WeightNIT
		evidence = append(evidence, entity.EvidenceSupplierAlias)
	}

	if inv.Total.Valid {
		s, ev := amountScore(cfg, inv.Total.Decimal, tx.Value)
		b.Amount = round4(cfg.WeightAmount * s)
		if ev != "" {
			evidence = append(evidence, ev)
		}
	}

	if !inv.Date.IsZero() && !tx.Date.IsZero() {
		if s := dateScore(cfg, inv, tx); s > 0 {
			b.Date = round4(cfg.WeightDate * s)
			evidence = append(evidence, entity.EvidenceDate)
		}
	}

	s, ev := descriptionScore(inv, tx)
	if s > 0 {
		b.Description = round4(cfg.WeightDescription * s)
		evidence = append(evidence, ev)
	}
	return b, evidence
}

// amountScore compara contra el valor absoluto de la transacción (débito o crédito).
func amountScore(cfg Config, total, value decimal.Decimal) (float64, string) {
	total = total.Abs()
	value = value.Abs()
	if total.Equal(value) {
		return amountExact, entity.EvidenceAmountExact
	}
	if total.IsZero() {
		return 0, ""
	}
	rel, _ := value.Sub(total).Abs().Div(total).Float64()
	switch {
	case rel <= cfg.AmountTolNear:
		return amountNear, entity.EvidenceAmountNear
	case rel <= cfg.AmountTolFar:
		return amountFar, entity.EvidenceAmountFar
	}
	return 0, ""
}

// dateScore decae linealmente de 1 (mismo día) a 0 (ventana cumplida).
func dateScore(cfg Config, inv entity.InvoiceDocument, tx entity.LedgerTransaction) float64 {
	days := math.Abs(tx.Date.Sub(inv.Date).Hours() / 24)
	s := 1 - days/float64(cfg.DateWindowDays)
	if s < 0 {
		return 0
	}
	return s
}

// descriptionScore 1.0 si el número de factura aparece en la transacción; si no, el
// coeficiente de solapamiento de tokens entre descripciones.
func descriptionScore(inv entity.InvoiceDocument, tx entity.LedgerTransaction) (float64, string) {
	if num := compact(inv.Number); num != "" {
		ref := compact(tx.InvoiceRef)
		switch {
		case ref == num,
			len(num) >= 3 && strings.HasSuffix(ref, num),
			len(num) >= 4 && strings.Contains(compact(tx.Description), num):
			return 1, entity.EvidenceInvoiceNumber
		}
	}
	a, b := normalize.Tokens(inv.Description), normalize.Tokens(tx.Description)
	if len(a) == 0 || len(b) == 0 {
		return 0, ""
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	seen := make(map[string]bool, len(b))
	inter := 0
	for _, t := range b {
		if set[t] && !seen[t] {
			inter++
		}
		seen[t] = true
	}
	if inter == 0 {
		return 0, ""
	}
	smaller := len(set)
	if len(seen) < smaller {
		smaller = len(seen)
	}
	return float64(inter) / float64(smaller), entity.EvidenceDescription
}

// compact letras y dígitos en mayúscula: "FE-1234" -> "FE1234".
func compact(s string) string {
	return strings.ReplaceAll(normalize.Text(s), " ", "")
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
