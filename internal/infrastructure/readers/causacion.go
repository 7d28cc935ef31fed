package readers

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
)

const (
	costSheet  = "Hoja1"
	itemsSheet = "Hoja5"
)

var costKeywords = []string{"CUENTA CONTABLE", "CENTRO DE COSTO", "NIT", "SUBCENTRO", "VALOR", "DESCRIPCION"}

var costColumns = []columnRule{
	{"subcenter", contains("SUBCENTRO")},
	{"center", contains("CENTRO DE COSTO", "CENTRO COSTO")},
	{"pucName", contains("NOMBRE CUENTA", "NOMBRE DE LA CUENTA")},
	{"puc", contains("CUENTA CONTABLE", "CUENTA")},
	{"nit", contains("NIT", "IDENTIFICACION")},
	{"value", contains("VALOR", "MONTO")},
	{"description", contains("DESCRIPCION", "DETALLE", "CONCEPTO")},
}

var itemKeywords = []string{"CUENTA", "ITEM", "CODIGO", "PUC"}

// ReadCostModel lee el modelo de causación (XLSX). La hoja de movimientos da las filas de
// costo y la hoja de ítems, si existe, los nombres de las cuentas usadas.
func ReadCostModel(r io.Reader, source string) ([]onboarding.RawCostRow, []onboarding.RawPUC, error) {
	f, err := openWorkbook(r)
	if err != nil {
		return nil, nil, wrap(source, err)
	}
	defer f.Close()

	rows, err := readSheet(f, costSheet)
	if err != nil {
		return nil, nil, wrap(source, err)
	}
	h := findHeader(rows, costKeywords, 2, 15)
	if h < 0 {
		return nil, nil, wrap(source, missing("cuenta contable", "centro de costo"))
	}
	cols := locate(rows[h], costColumns)
	if !cols.has("puc") || !cols.has("center") {
		return nil, nil, wrap(source, missing("cuenta contable", "centro de costo"))
	}

	var costs []onboarding.RawCostRow
	for i := h + 1; i < len(rows); i++ {
		row := rows[i]
		puc := trimFloatSuffix(cols.get(row, "puc"))
		if puc == "" {
			continue
		}
		costs = append(costs, onboarding.RawCostRow{
			Source:        source,
			Row:           i + 1,
			PUC:           puc,
			PUCName:       cols.get(row, "pucName"),
			CostCenter:    cols.get(row, "center"),
			SubCenter:     cols.get(row, "subcenter"),
			Value:         cols.get(row, "value"),
			Description:   cols.get(row, "description"),
			ThirdPartyNIT: cols.get(row, "nit"),
		})
	}

	var items []onboarding.RawPUC
	if hasSheet(f, itemsSheet) {
		items, err = readCostItems(f, source)
		if err != nil {
			return nil, nil, err
		}
	}
	return costs, items, nil
}

// readCostItems hoja de ítems: columna B la cuenta, C el nombre del ítem. El encabezado suele
// estar en la fila 4; si no se reconoce se asume esa posición.
func readCostItems(f *excelize.File, source string) ([]onboarding.RawPUC, error) {
	rows, err := readSheet(f, itemsSheet)
	if err != nil {
		return nil, wrap(source, err)
	}
	h := findHeader(rows, itemKeywords, 2, 10)
	if h < 0 {
		h = 3
	}
	var out []onboarding.RawPUC
	for i := h + 1; i < len(rows); i++ {
		code := trimFloatSuffix(cell(rows[i], 1))
		if code == "" {
			continue
		}
		out = append(out, onboarding.RawPUC{
			Source: source + "#" + itemsSheet,
			Row:    i + 1,
			Code:   code,
			Name:   cell(rows[i], 2),
		})
	}
	return out, nil
}
