package registry

import (
	"math"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
)

// DefaultMergeThreshold similitud mínima para fusionar dos razones sociales sin NIT.
// Es alta a propósito: una fusión falsa mezcla la contabilidad de dos terceros.
const DefaultMergeThreshold = 0.92

// corporateSuffixes sufijos societarios que no distinguen a un tercero
// (ya en forma normalize.Text: "S.A.S." -> "SAS").
var corporateSuffixes = map[string]bool{
	"SAS": true, "SA": true, "LTDA": true, "LIMITADA": true, "EU": true,
	"SCA": true, "SCS": true, "CIA": true, "SENC": true, "ESP": true,
	"BIC": true, "EICE": true, "ZOMAC": true, "INC": true, "LLC": true,
}

// NameKey forma comparable de una razón social: tokens significativos, sin sufijos
// societarios, únicos y ordenados.
func NameKey(name string) string {
	return strings.Join(nameTokens(name), " ")
}

func nameTokens(name string) []string {
	// "S EN C" se quita antes de descartar stop words ("EN" es una)
	text := strings.ReplaceAll(" "+normalize.Text(name)+" ", " S EN C ", " ")
	tokens := normalize.Tokens(text)
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if corporateSuffixes[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NameSimilarity similitud de conjuntos de tokens entre dos razones sociales, en [0,1].
// Es el máximo entre el índice de Jaccard de los tokens y la razón de Levenshtein de los
// tokens ordenados (tolera errores de digitación dentro de una palabra).
func NameSimilarity(a, b string) float64 {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	return round4(math.Max(jaccard(ta, tb), levenshteinRatio(strings.Join(ta, " "), strings.Join(tb, " "))))
}

func jaccard(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	for _, t := range b {
		if set[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// levenshteinRatio (|a|+|b|-distancia)/(|a|+|b|) con sustitución de costo 2, equivalente
// a la razón de bloques coincidentes de difflib.
func levenshteinRatio(a, b string) float64 {
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
