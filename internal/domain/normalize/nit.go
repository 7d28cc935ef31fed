package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jhoicas/onboarding-contable/pkg/dian"
)

// Heurísticas y marcas del NIT.
const (
	HeuristicNITExplicitDV = "nitExplicitDV" // "900123456-8"
	HeuristicNITTrailingDV = "nitTrailingDV" // 10 dígitos cuyo último es el DV de los 9 primeros
	HeuristicNITBaseOnly   = "nitBaseOnly"   // sin DV, se calcula
	HeuristicNITFloat      = "nitFloatSuffix"

	TagCheckDigitMismatch = "checkDigitMismatch"
)

// NIT identificador tributario canónico. Base identifica al tercero; DV siempre es el calculado.
type NIT struct {
	Base       string
	DV         byte
	ProvidedDV byte // 0 si la fuente no traía DV
	Heuristic  string
	Tags       []string
}

// String forma canónica "base-DV".
func (n NIT) String() string {
	if n.Base == "" {
		return ""
	}
	return n.Base + "-" + string(n.DV)
}

// Mismatch indica que el DV de la fuente no coincide con el calculado.
func (n NIT) Mismatch() bool { return hasTag(n.Tags, TagCheckDigitMismatch) }

// exportaciones de hojas de cálculo que guardan el NIT como número: "900123456.0"
var floatSuffix = regexp.MustCompile(`^\s*(\d+)\.0+\s*$`)

// ParseNIT normaliza un NIT o cédula. Con DV explícito distinto al calculado no falla:
// devuelve la base y marca checkDigitMismatch (las fuentes traen NIT mal digitados).
func ParseNIT(raw string) (NIT, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return NIT{}, newError(KindNIT, raw, ErrEmpty)
	}
	var heuristic string
	if m := floatSuffix.FindStringSubmatch(s); m != nil {
		s = m[1]
		heuristic = HeuristicNITFloat
	}

	var base string
	var provided byte
	if i := strings.LastIndex(s, "-"); i >= 0 {
		tail := dian.ExtractDigits(s[i+1:])
		head := dian.ExtractDigits(s[:i])
		if len(tail) == 1 && head != "" {
			base, provided = head, tail[0]
			heuristic = HeuristicNITExplicitDV
		}
	}
	if base == "" {
		digits := dian.ExtractDigits(s)
		if digits == "" {
			return NIT{}, newError(KindNIT, raw, fmt.Errorf("%w: sin dígitos", ErrMalformed))
		}
		base = digits
		if heuristic == "" {
			heuristic = HeuristicNITBaseOnly
		}
		if len(digits) == 10 {
			if dv, err := dian.ComputeNITVerificationDigit(digits[:9]); err == nil && dv == digits[9] {
				base, provided = digits[:9], digits[9]
				heuristic = HeuristicNITTrailingDV
			}
		}
	}
	base = strings.TrimLeft(base, "0")
	if base == "" {
		return NIT{}, newError(KindNIT, raw, fmt.Errorf("%w: NIT en ceros", ErrMalformed))
	}
	dv, err := dian.ComputeNITVerificationDigit(base)
	if err != nil {
		return NIT{}, newError(KindNIT, raw, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	n := NIT{Base: base, DV: dv, ProvidedDV: provided, Heuristic: heuristic}
	if provided != 0 && provided != dv {
		n.Tags = append(n.Tags, TagCheckDigitMismatch)
	}
	return n, nil
}

// NITBase atajo: base del NIT o "" si no se puede normalizar.
func NITBase(raw string) string {
	n, err := ParseNIT(raw)
	if err != nil {
		return ""
	}
	return n.Base
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
