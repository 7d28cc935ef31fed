package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords palabras sin valor para comparar descripciones y razones sociales.
var stopWords = map[string]bool{
	"DE": true, "DEL": true, "LA": true, "LAS": true, "EL": true, "LOS": true,
	"Y": true, "E": true, "EN": true, "POR": true, "PARA": true, "CON": true,
	"A": true, "AL": true, "UN": true, "UNA": true, "THE": true, "OF": true, "AND": true,
}

// Fold quita tildes y diacríticos ("Compañía" -> "Compania").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Text forma canónica de texto libre: sin tildes, en mayúsculas, sin puntuación y con
// espacios simples. Los puntos y apóstrofes se eliminan sin partir la palabra
// ("S.A.S." -> "SAS"); el resto de la puntuación separa palabras.
func Text(raw string) string {
	folded := strings.ToUpper(Fold(raw))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '.' || r == '\'' || r == '´' || r == '`':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens palabras significativas del texto canónico (sin stop words), en orden de aparición.
func Tokens(raw string) []string {
	fields := strings.Fields(Text(raw))
	out := fields[:0]
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// InvoiceRef extrae el número de factura de una descripción del libro auxiliar: la primera
// palabra que contiene un dígito ("FRA FE-1234 ARRENDAMIENTO" -> "FE1234").
func InvoiceRef(description string) string {
	for _, f := range strings.Fields(strings.ToUpper(Fold(description))) {
		if !strings.ContainsAny(f, "0123456789") {
			continue
		}
		ref := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, f)
		if ref != "" {
			return ref
		}
	}
	return ""
}
