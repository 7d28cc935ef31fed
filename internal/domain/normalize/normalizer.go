package normalize

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
)

const component = "normalizer"

// Value resultado genérico de Field.
type Value struct {
	Kind      Kind
	Canonical string
	Amount    decimal.Decimal
	Date      time.Time
	Heuristic string
	Tags      []string
}

// Normalizer aplica las reglas de normalización y deja en la auditoría cada heurística
// aplicada y cada valor rechazado. subject identifica el registro (p. ej. "aux.csv#12").
type Normalizer struct {
	rec audit.Recorder
}

// New crea el normalizador. rec puede ser audit.Discard.
func New(rec audit.Recorder) *Normalizer {
	if rec == nil {
		rec = audit.Discard
	}
	return &Normalizer{rec: rec}
}

// Field normaliza raw según el tipo declarado.
func (n *Normalizer) Field(kind Kind, raw, subject string) (Value, error) {
	switch kind {
	case KindNIT:
		v, err := n.NIT(raw, subject)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Canonical: v.String(), Heuristic: v.Heuristic, Tags: v.Tags}, nil
	case KindPUC:
		v, err := n.PUC(raw, subject)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Canonical: v.Code, Tags: v.Tags}, nil
	case KindCurrency:
		v, err := n.Amount(raw, subject)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Canonical: FormatAmount(v.Value), Amount: v.Value, Heuristic: v.Heuristic}, nil
	case KindDate:
		v, err := n.Date(raw, subject)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Canonical: v.Value.Format("2006-01-02"), Date: v.Value, Heuristic: v.Heuristic}, nil
	case KindText:
		return Value{Kind: kind, Canonical: Text(raw)}, nil
	default:
		return Value{}, newError(kind, raw, ErrUnknownKind)
	}
}

// NIT normaliza y audita el NIT.
func (n *Normalizer) NIT(raw, subject string) (NIT, error) {
	v, err := ParseNIT(raw)
	if err != nil {
		n.fail(KindNIT, raw, subject, err)
		return v, err
	}
	if (v.Heuristic != HeuristicNITBaseOnly && v.Heuristic != HeuristicNITExplicitDV) || len(v.Tags) > 0 {
		n.record(KindNIT, raw, subject, v.Heuristic, v.String(), v.Tags)
	}
	return v, nil
}

// PUC normaliza y audita el código de cuenta.
func (n *Normalizer) PUC(raw, subject string) (PUC, error) {
	v, err := ParsePUC(raw)
	if err != nil {
		n.fail(KindPUC, raw, subject, err)
		return v, err
	}
	if len(v.Tags) > 0 {
		n.record(KindPUC, raw, subject, "", v.Code, v.Tags)
	}
	return v, nil
}

// Amount normaliza el monto y audita la heurística de separadores.
func (n *Normalizer) Amount(raw, subject string) (Amount, error) {
	v, err := ParseAmount(raw)
	if err != nil {
		n.fail(KindCurrency, raw, subject, err)
		return v, err
	}
	if v.Heuristic != HeuristicNoSeparator {
		n.record(KindCurrency, raw, subject, v.Heuristic, FormatAmount(v.Value), nil)
	}
	return v, nil
}

// Date normaliza la fecha y audita formatos distintos de ISO y DD/MM.
func (n *Normalizer) Date(raw, subject string) (Date, error) {
	v, err := ParseDate(raw)
	if err != nil {
		n.fail(KindDate, raw, subject, err)
		return v, err
	}
	if v.Heuristic != HeuristicISO && v.Heuristic != HeuristicDayFirst {
		n.record(KindDate, raw, subject, v.Heuristic, v.Value.Format("2006-01-02"), nil)
	}
	return v, nil
}

func (n *Normalizer) record(kind Kind, raw, subject, heuristic, canonical string, tags []string) {
	fields := map[string]string{"kind": string(kind), "raw": raw, "canonical": canonical}
	if len(tags) > 0 {
		fields["tags"] = strings.Join(tags, ",")
	}
	n.rec.Record(audit.Event{
		Component: component,
		Kind:      audit.KindNormalization,
		Rule:      heuristic,
		Subject:   subject,
		Fields:    fields,
	})
}

func (n *Normalizer) fail(kind Kind, raw, subject string, err error) {
	if errors.Is(err, ErrEmpty) {
		return
	}
	n.rec.Record(audit.Event{
		Component: component,
		Kind:      audit.KindNormalization,
		Rule:      "error",
		Subject:   subject,
		Fields:    map[string]string{"kind": string(kind), "raw": raw, "error": err.Error()},
	})
}
