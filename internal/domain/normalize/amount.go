package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyScale decimales de la moneda (COP).
const CurrencyScale = 2

// Heurísticas de separadores. Las exportaciones contables latinoamericanas usan "." y ","
// en ambos roles; la heurística aplicada queda en la auditoría.
const (
	HeuristicNoSeparator      = "noSeparator"
	HeuristicSingleDecimal    = "singleDecimal"    // un tipo de separador, una vez, <=2 dígitos finales
	HeuristicThousandsOnly    = "thousandsOnly"    // un tipo de separador agrupando de a 3
	HeuristicRightmostDecimal = "rightmostDecimal" // el separador más a la derecha es el decimal
)

// Amount monto en punto fijo con la heurística que lo produjo.
type Amount struct {
	Value     decimal.Decimal
	Heuristic string
}

// FormatAmount representación canónica (sin separador de miles, punto decimal, 2 decimales).
// ParseAmount(FormatAmount(x)) == x.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(CurrencyScale).StringFixed(CurrencyScale)
}

// ParseAmount interpreta montos como "1,250,000.00", "1.250.000,00", "$ 1.250.000", "(1.234)" o "1234-".
func ParseAmount(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Amount{}, newError(KindCurrency, raw, ErrEmpty)
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", "COP", "", "cop", "", " ", "", "\u00a0", "", "'", "").Replace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	} else if strings.HasSuffix(s, "-") {
		negative = !negative
		s = s[:len(s)-1]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if s == "" {
		return Amount{}, newError(KindCurrency, raw, fmt.Errorf("%w: sin dígitos", ErrMalformed))
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return Amount{}, newError(KindCurrency, raw, fmt.Errorf("%w: carácter %q", ErrMalformed, r))
		}
	}

	plain, heuristic, err := resolveSeparators(s)
	if err != nil {
		return Amount{}, newError(KindCurrency, raw, err)
	}
	if strings.HasPrefix(plain, ".") {
		plain = "0" + plain
	}
	d, err := decimal.NewFromString(plain)
	if err != nil {
		return Amount{}, newError(KindCurrency, raw, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	d = d.Round(CurrencyScale)
	if negative {
		d = d.Neg()
	}
	return Amount{Value: d, Heuristic: heuristic}, nil
}

// resolveSeparators devuelve el número con "." como único separador decimal.
func resolveSeparators(s string) (string, string, error) {
	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	switch {
	case dots == 0 && commas == 0:
		return s, HeuristicNoSeparator, nil
	case dots > 0 && commas > 0:
		last := strings.LastIndexAny(s, ".,")
		dec := s[last]
		if strings.Count(s, string(dec)) > 1 {
			return "", "", fmt.Errorf("%w: separador decimal repetido", ErrMalformed)
		}
		thousands := ","
		if dec == ',' {
			thousands = "."
		}
		intPart := strings.ReplaceAll(s[:last], thousands, "")
		return intPart + "." + s[last+1:], HeuristicRightmostDecimal, nil
	}

	sep := "."
	if commas > 0 {
		sep = ","
	}
	parts := strings.Split(s, sep)
	trailing := len(parts[len(parts)-1])
	if len(parts) == 2 {
		switch {
		case trailing <= 2:
			return parts[0] + "." + parts[1], HeuristicSingleDecimal, nil
		case trailing == 3 && validLeadGroup(parts[0]) && parts[0] != "0":
			return parts[0] + parts[1], HeuristicThousandsOnly, nil
		default:
			return parts[0] + "." + parts[1], HeuristicRightmostDecimal, nil
		}
	}
	grouped := validLeadGroup(parts[0])
	for _, p := range parts[1:] {
		if len(p) != 3 {
			grouped = false
		}
	}
	if grouped {
		return strings.Join(parts, ""), HeuristicThousandsOnly, nil
	}
	last := parts[len(parts)-1]
	return strings.Join(parts[:len(parts)-1], "") + "." + last, HeuristicRightmostDecimal, nil
}

// validLeadGroup primer grupo de un número agrupado de a miles: entre 1 y 3 dígitos.
func validLeadGroup(p string) bool {
	return p != "" && len(p) <= 3
}
