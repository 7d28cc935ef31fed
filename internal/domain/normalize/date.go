package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Heurísticas de fecha.
const (
	HeuristicDayFirst    = "dayFirst"    // DD/MM/AAAA (convención de las exportaciones colombianas)
	HeuristicMonthFirst  = "monthFirst"  // MM/DD/AAAA, solo si DD/MM no es válida
	HeuristicISO         = "iso"         // AAAA-MM-DD
	HeuristicCompact     = "compact"     // AAAAMMDD
	HeuristicSpanishName = "spanishName" // 10-mar-2024, 10 de marzo de 2024
	HeuristicExcelSerial = "excelSerial" // días desde 1899-12-30
)

// Date fecha calendario en UTC (sin hora) y la heurística que la produjo.
type Date struct {
	Value     time.Time
	Layout    string
	Heuristic string
}

var isoLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
}

var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02/01/06",
}

var monthFirstLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

var spanishMonths = map[string]string{
	"ene": "01", "enero": "01",
	"feb": "02", "febrero": "02",
	"mar": "03", "marzo": "03",
	"abr": "04", "abril": "04",
	"may": "05", "mayo": "05",
	"jun": "06", "junio": "06",
	"jul": "07", "julio": "07",
	"ago": "08", "agosto": "08",
	"sep": "09", "sept": "09", "set": "09", "septiembre": "09", "setiembre": "09",
	"oct": "10", "octubre": "10",
	"nov": "11", "noviembre": "11",
	"dic": "12", "diciembre": "12",
}

// excelEpoch origen de los seriales de fecha de Excel (sistema 1900).
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate acepta los formatos conocidos de las fuentes; falla con ErrUnparseableDate
// solo cuando ninguno aplica.
func ParseDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, newError(KindDate, raw, ErrEmpty)
	}

	if isDigits(s) {
		switch len(s) {
		case 8:
			if t, err := time.Parse("20060102", s); err == nil {
				return Date{Value: dateOnly(t), Layout: "20060102", Heuristic: HeuristicCompact}, nil
			}
		case 5:
			n, _ := strconv.Atoi(s)
			if n >= 20000 && n <= 80000 {
				return Date{Value: excelEpoch.AddDate(0, 0, n), Heuristic: HeuristicExcelSerial}, nil
			}
		}
		return Date{}, newError(KindDate, raw, ErrUnparseableDate)
	}

	for _, l := range isoLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return Date{Value: dateOnly(t), Layout: l, Heuristic: HeuristicISO}, nil
		}
	}

	slashed := strings.NewReplacer("-", "/", ".", "/").Replace(s)
	for _, l := range dayFirstLayouts {
		if t, err := time.Parse(l, slashed); err == nil {
			return Date{Value: dateOnly(t), Layout: l, Heuristic: HeuristicDayFirst}, nil
		}
	}
	if t, err := time.Parse("2006/01/02", slashed); err == nil {
		return Date{Value: dateOnly(t), Layout: "2006/01/02", Heuristic: HeuristicISO}, nil
	}
	for _, l := range monthFirstLayouts {
		if t, err := time.Parse(l, slashed); err == nil {
			return Date{Value: dateOnly(t), Layout: l, Heuristic: HeuristicMonthFirst}, nil
		}
	}

	if d, ok := parseSpanishMonth(s); ok {
		return d, nil
	}
	return Date{}, newError(KindDate, raw, fmt.Errorf("%w", ErrUnparseableDate))
}

// parseSpanishMonth interpreta "10-mar-2024", "10 mar 2024" y "10 de marzo de 2024".
func parseSpanishMonth(s string) (Date, bool) {
	folded := strings.ToLower(Fold(s))
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == '.'
	})
	var parts []string
	for _, f := range fields {
		if f == "de" || f == "del" {
			continue
		}
		parts = append(parts, f)
	}
	if len(parts) != 3 {
		return Date{}, false
	}
	month, ok := spanishMonths[parts[1]]
	if !ok {
		return Date{}, false
	}
	t, err := time.Parse("2/01/2006", parts[0]+"/"+month+"/"+parts[2])
	if err != nil {
		return Date{}, false
	}
	return Date{Value: t, Layout: "2/01/2006", Heuristic: HeuristicSpanishName}, true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
