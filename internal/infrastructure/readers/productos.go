package readers

import (
	"io"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
)

var productKeywords = []string{"CODIGO", "NOMBRE", "DESCRIPCION", "PRECIO", "LINEA", "GRUPO", "UNIDAD", "PROVEEDOR"}

var productColumns = []columnRule{
	{"unit", contains("UNIDAD")},
	{"line", equals("LINEA", "LINEA PRODUCTO")},
	{"group", contains("GRUPO")},
	{"code", contains("CODIGO", "REFERENCIA")},
	{"name", contains("NOMBRE")},
	{"description", contains("DESCRIPCION")},
	{"price", contains("PRECIO", "VALOR")},
}

// Posiciones del exporte sin encabezado reconocible (plantilla de carga de productos).
const (
	productSkipLines = 5
	posLine          = 0
	posGroup         = 1
	posName          = 3
	posDescription   = 4
	posPrice         = 6
	posSupplierFrom  = 50
	posSupplierTo    = 53
	posUnit          = 79
)

// ReadProducts lee el catálogo de productos (CSV). Con encabezado reconocible se leen las
// columnas por nombre y los NIT de proveedor de toda columna "PROVEEDOR"/"NIT"; si no, se usa
// la plantilla posicional tras las primeras líneas de título.
func ReadProducts(r io.Reader, source string) ([]onboarding.RawProduct, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, wrap(source, err)
	}
	if h := findHeader(rows, productKeywords, 3, 10); h >= 0 {
		return productsByHeader(rows, h, source), nil
	}
	return productsByPosition(rows, source), nil
}

func productsByHeader(rows [][]string, h int, source string) []onboarding.RawProduct {
	cols := locate(rows[h], productColumns)
	var supplierCols []int
	for i, c := range rows[h] {
		k := headerKey(c)
		if contains("PROVEEDOR", "NIT")(k) && !contains("NOMBRE")(k) {
			supplierCols = append(supplierCols, i)
		}
	}

	var out []onboarding.RawProduct
	for i := h + 1; i < len(rows); i++ {
		row := rows[i]
		if density(row) == 0 {
			continue
		}
		p := onboarding.RawProduct{
			Source:      source,
			Row:         i + 1,
			Code:        cols.get(row, "code"),
			Name:        cols.get(row, "name"),
			Description: cols.get(row, "description"),
			Price:       cols.get(row, "price"),
			Line:        cols.get(row, "line"),
			Group:       cols.get(row, "group"),
			Unit:        cols.get(row, "unit"),
		}
		for _, c := range supplierCols {
			if v := cell(row, c); v != "" {
				p.SupplierNITs = append(p.SupplierNITs, v)
			}
		}
		out = append(out, p)
	}
	return out
}

func productsByPosition(rows [][]string, source string) []onboarding.RawProduct {
	var out []onboarding.RawProduct
	for i := productSkipLines; i < len(rows); i++ {
		row := rows[i]
		if density(row) == 0 {
			continue
		}
		p := onboarding.RawProduct{
			Source:      source,
			Row:         i + 1,
			Name:        cell(row, posName),
			Description: cell(row, posDescription),
			Price:       cell(row, posPrice),
			Line:        cell(row, posLine),
			Group:       cell(row, posGroup),
			Unit:        cell(row, posUnit),
		}
		for c := posSupplierFrom; c <= posSupplierTo; c++ {
			if v := cell(row, c); v != "" {
				p.SupplierNITs = append(p.SupplierNITs, v)
			}
		}
		out = append(out, p)
	}
	return out
}
