// Package readers convierte los archivos del cliente (CSV, XLSX, ZIP de facturas) en los
// flujos de filas crudas que consume el pipeline de conciliación. No interpreta valores:
// solo ubica encabezados y columnas.
package readers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
)

// ErrMissingColumns el archivo no trae las columnas mínimas.
var ErrMissingColumns = fmt.Errorf("%w: faltan columnas requeridas", domain.ErrInvalidInput)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText devuelve el contenido en UTF-8. Las exportaciones de software contable en
// Windows llegan en latin1; si el contenido no es UTF-8 válido se decodifica como ISO-8859-1.
func decodeText(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decodificar latin1: %w", err)
	}
	return out, nil
}

// detectDelimiter elige entre coma, punto y coma y tabulador según las primeras líneas con
// datos (los exportes suelen traer títulos sin separadores antes del encabezado).
func detectDelimiter(content []byte) rune {
	counts := map[rune]int{}
	seen := 0
	for _, line := range bytes.Split(content, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		for _, d := range []rune{',', ';', '\t'} {
			counts[d] += bytes.Count(line, []byte(string(d)))
		}
		if seen++; seen == 10 {
			break
		}
	}
	best := ','
	for _, d := range []rune{';', '\t'} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// readCSV lee todas las filas del CSV tolerando filas de largo variable y comillas sueltas.
func readCSV(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(content))
	cr.Comma = detectDelimiter(content)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("leer CSV: %w", err)
	}
	return rows, nil
}

// readSheet filas de una hoja del libro; si sheet es vacío o no existe se usa la primera.
func readSheet(f *excelize.File, sheet string) ([][]string, error) {
	if sheet == "" || !hasSheet(f, sheet) {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("leer hoja %s: %w", sheet, err)
	}
	return rows, nil
}

func hasSheet(f *excelize.File, sheet string) bool {
	idx, err := f.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

func openWorkbook(r io.Reader) (*excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("abrir XLSX: %w", err)
	}
	return f, nil
}

// headerKey forma comparable de un encabezado: sin tildes, mayúsculas, sin puntuación.
func headerKey(s string) string {
	return normalize.Text(s)
}

// findHeader primera fila (dentro de las primeras limit) con al menos minHits encabezados
// que contienen alguna palabra clave y a lo sumo la mitad de celdas vacías. -1 si no hay.
func findHeader(rows [][]string, keywords []string, minHits, limit int) int {
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		row := rows[i]
		if len(row) == 0 {
			continue
		}
		hits, empty := 0, 0
		for _, c := range row {
			k := headerKey(c)
			if k == "" || strings.HasPrefix(k, "UNNAMED") {
				empty++
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(k, kw) {
					hits++
					break
				}
			}
		}
		if hits >= minHits && float64(empty)/float64(len(row)) <= 0.5 {
			return i
		}
	}
	return -1
}

// columns posiciones de las columnas del encabezado.
type columns map[string]int

// locate busca, para cada campo, la primera columna cuyo encabezado satisface la regla.
// Un campo ya asignado no reclama columnas de otro.
func locate(header []string, rules []columnRule) columns {
	cols := make(columns, len(rules))
	taken := make(map[int]bool)
	for _, rule := range rules {
		for i, h := range header {
			if taken[i] {
				continue
			}
			if rule.match(headerKey(h)) {
				cols[rule.field] = i
				taken[i] = true
				break
			}
		}
	}
	return cols
}

// columnRule regla de reconocimiento de un encabezado.
type columnRule struct {
	field string
	match func(key string) bool
}

func contains(words ...string) func(string) bool {
	return func(k string) bool {
		for _, w := range words {
			if strings.Contains(k, w) {
				return true
			}
		}
		return false
	}
}

func equals(words ...string) func(string) bool {
	return func(k string) bool {
		for _, w := range words {
			if k == w {
				return true
			}
		}
		return false
	}
}

func anyOf(matchers ...func(string) bool) func(string) bool {
	return func(k string) bool {
		for _, m := range matchers {
			if m(k) {
				return true
			}
		}
		return false
	}
}

// get valor de la celda del campo; "" si la columna no existe o la fila es corta.
func (c columns) get(row []string, field string) string {
	i, ok := c[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) has(field string) bool {
	_, ok := c[field]
	return ok
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// density proporción de celdas no vacías de la fila.
func density(row []string) float64 {
	if len(row) == 0 {
		return 0
	}
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return float64(n) / float64(len(row))
}

func wrap(source string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("readers: %s: %w", source, err)
}

type missingColumnsError struct {
	fields []string
}

func (e *missingColumnsError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingColumns, strings.Join(e.fields, ", "))
}

func (e *missingColumnsError) Unwrap() error { return ErrMissingColumns }

func missing(fields ...string) error {
	return &missingColumnsError{fields: fields}
}
