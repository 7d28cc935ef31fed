package normalize

import (
	"fmt"
	"strings"
)

// TagNonStandardDepth código PUC con longitud fuera de los niveles estándar.
const TagNonStandardDepth = "nonStandardDepth"

// Niveles del PUC por longitud del código: clase, grupo, cuenta, subcuenta y auxiliares.
var pucLevels = []int{1, 2, 4, 6, 8, 10}

// PUC código del Plan Único de Cuentas sin separadores ("5105.01" -> "510501").
type PUC struct {
	Code string
	Tags []string
}

// String código canónico.
func (p PUC) String() string { return p.Code }

// Class primer dígito (clase del PUC).
func (p PUC) Class() string {
	if p.Code == "" {
		return ""
	}
	return p.Code[:1]
}

// Standard indica si la longitud corresponde a un nivel estándar.
func (p PUC) Standard() bool { return IsStandardPUCDepth(len(p.Code)) }

// Parent código del nivel estándar inmediatamente superior ("" para una clase).
func (p PUC) Parent() string { return PUCParent(p.Code) }

// IsStandardPUCDepth indica si n es una longitud estándar del PUC.
func IsStandardPUCDepth(n int) bool {
	for _, l := range pucLevels {
		if l == n {
			return true
		}
	}
	return false
}

// PUCParent prefijo del nivel estándar más largo que sea estrictamente menor que el código.
func PUCParent(code string) string {
	parent := ""
	for _, l := range pucLevels {
		if l >= len(code) {
			break
		}
		parent = code[:l]
	}
	return parent
}

// ParsePUC quita separadores y valida que el código sea numérico y empiece por una clase (1-9).
// Longitudes no estándar se aceptan con la marca nonStandardDepth.
func ParsePUC(raw string) (PUC, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return PUC{}, newError(KindPUC, raw, ErrEmpty)
	}
	// Celdas numéricas exportadas como float: "510501.0"
	if strings.HasSuffix(s, ".0") && strings.Count(s, ".") == 1 {
		s = strings.TrimSuffix(s, ".0")
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == ' ' || r == '_':
		default:
			return PUC{}, newError(KindPUC, raw, fmt.Errorf("%w: carácter %q", ErrMalformed, r))
		}
	}
	code := b.String()
	if code == "" {
		return PUC{}, newError(KindPUC, raw, fmt.Errorf("%w: sin dígitos", ErrMalformed))
	}
	if code[0] == '0' {
		return PUC{}, newError(KindPUC, raw, fmt.Errorf("%w: la clase no puede ser 0", ErrMalformed))
	}
	p := PUC{Code: code}
	if !p.Standard() {
		p.Tags = append(p.Tags, TagNonStandardDepth)
	}
	return p, nil
}
