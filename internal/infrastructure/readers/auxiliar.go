package readers

import (
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
)

var ledgerKeywords = []string{"CUENTA", "NIT", "SALDO", "FECHA", "DESCRIPCION", "DEBITO", "CREDITO", "COMPROBANTE"}

var ledgerColumns = []columnRule{
	{"nitFormatted", contains("NIT FORMATEADO", "NIT CON FORMATO", "IDENTIFICACION FORMATEADA")},
	{"accountName", contains("NOMBRE CUENTA", "NOMBRE DE LA CUENTA", "DESCRIPCION CUENTA")},
	{"puc", anyOf(equals("CUENTA", "CODIGO", "CODIGO CUENTA", "CUENTA PUC"), contains("CUENTA CONTABLE"))},
	{"date", contains("FECHA")},
	{"debit", contains("DEBITO", "DEBE")},
	{"credit", contains("CREDITO", "HABER")},
	{"value", equals("VALOR", "MONTO", "IMPORTE")},
	{"name", contains("NOMBRE TERCERO", "NOMBRE DEL TERCERO", "RAZON SOCIAL", "NOMBRE")},
	{"nit", anyOf(equals("TERCERO", "IDENTIFICACION"), contains("NIT"))},
	{"description", contains("DESCRIPCION", "DETALLE", "CONCEPTO", "OBSERVACION")},
	{"voucher", contains("COMPROBANTE", "DOCUMENTO")},
}

// minLedgerDensity filas con menos datos son encabezados repetidos, subtotales o separadores.
const minLedgerDensity = 0.3

// ReadLedger lee un libro auxiliar de proveedores (CSV). El encabezado se ubica por densidad
// de palabras clave porque los exportes traen varias filas de título antes. Se omiten filas
// sin cuenta y filas de totales (sin NIT ni nombre). No filtra por clase PUC.
func ReadLedger(r io.Reader, source string) ([]onboarding.RawLedgerRow, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, wrap(source, err)
	}
	h := findHeader(rows, ledgerKeywords, 3, 30)
	if h < 0 {
		return nil, wrap(source, missing("cuenta", "nit", "fecha"))
	}
	cols := locate(rows[h], ledgerColumns)
	if !cols.has("puc") || (!cols.has("nit") && !cols.has("name")) {
		return nil, wrap(source, missing("cuenta", "nit"))
	}

	var out []onboarding.RawLedgerRow
	for i := h + 1; i < len(rows); i++ {
		row := rows[i]
		if density(row) < minLedgerDensity {
			continue
		}
		puc := trimFloatSuffix(cols.get(row, "puc"))
		if puc == "" {
			continue
		}
		nit, name := splitNITName(cols.get(row, "nit"))
		if n := cols.get(row, "name"); n != "" {
			name = n
		}
		if nit == "" && cols.get(row, "nitFormatted") == "" && name == "" {
			continue
		}
		desc := cols.get(row, "description")
		if desc == "" {
			desc = cols.get(row, "voucher")
		}
		out = append(out, onboarding.RawLedgerRow{
			Source:       source,
			Row:          i + 1,
			NIT:          nit,
			NITFormatted: cols.get(row, "nitFormatted"),
			Name:         name,
			PUC:          puc,
			Date:         cols.get(row, "date"),
			Debit:        cols.get(row, "debit"),
			Credit:       cols.get(row, "credit"),
			Value:        cols.get(row, "value"),
			Description:  desc,
		})
	}
	return out, nil
}

var floatSuffix = regexp.MustCompile(`^(\d+)\.0+$`)

// trimFloatSuffix "51352501.0" -> "51352501" (celdas numéricas exportadas desde hojas de cálculo).
func trimFloatSuffix(s string) string {
	if m := floatSuffix.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// splitNITName separa celdas del tipo "900123456 FERRETERIA EL TORNILLO": las palabras
// iniciales sin letras son el NIT y el resto el nombre.
func splitNITName(s string) (string, string) {
	fields := strings.Fields(s)
	i := 0
	for i < len(fields) && !strings.ContainsFunc(fields[i], unicode.IsLetter) {
		i++
	}
	return strings.Join(fields[:i], " "), strings.Join(fields[i:], " ")
}
