package readers

import (
	"io"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
)

var supplierKeywords = []string{"IDENTIFICACION", "NIT", "RAZON SOCIAL", "SUCURSAL", "RESPONSABILIDAD", "ACTIVIDAD", "CIUDAD", "NOMBRE"}

var supplierColumns = []columnRule{
	{"doctype", contains("TIPO DE IDENTIFICACION", "TIPO IDENTIFICACION", "TIPO DOCUMENTO")},
	{"dv", anyOf(equals("DV"), contains("DIGITO DE VERIFICACION", "DIGITO VERIFICACION"))},
	{"fiscal", contains("RESPONSABILIDAD FISCAL", "RESPONSABILIDADES")},
	{"activity", contains("ACTIVIDAD ECONOMICA", "CODIGO ACTIVIDAD", "CIIU")},
	{"city", contains("CIUDAD", "MUNICIPIO")},
	{"branch", contains("SUCURSAL")},
	{"name", contains("RAZON SOCIAL", "NOMBRE")},
	{"nit", contains("IDENTIFICACION", "NIT", "DOCUMENTO")},
}

// ReadSuppliers lee el modelo de terceros (CSV). Las filas sin identificación ni razón social
// se omiten. Si el archivo trae el DV en columna aparte se agrega al NIT.
func ReadSuppliers(r io.Reader, source string) ([]onboarding.RawSupplier, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, wrap(source, err)
	}
	h := findHeader(rows, supplierKeywords, 2, 20)
	if h < 0 {
		return nil, wrap(source, missing("identificación", "razón social"))
	}
	cols := locate(rows[h], supplierColumns)
	if !cols.has("nit") && !cols.has("name") {
		return nil, wrap(source, missing("identificación", "razón social"))
	}

	var out []onboarding.RawSupplier
	for i := h + 1; i < len(rows); i++ {
		row := rows[i]
		s := onboarding.RawSupplier{
			Source:                 source,
			Row:                    i + 1,
			NIT:                    cols.get(row, "nit"),
			Name:                   cols.get(row, "name"),
			Branch:                 cols.get(row, "branch"),
			FiscalResponsibilities: cols.get(row, "fiscal"),
			EconomicActivity:       cols.get(row, "activity"),
			City:                   cols.get(row, "city"),
		}
		if s.NIT == "" && s.Name == "" {
			continue
		}
		if dv := cols.get(row, "dv"); dv != "" && s.NIT != "" {
			s.NIT += "-" + dv
		}
		out = append(out, s)
	}
	return out, nil
}
