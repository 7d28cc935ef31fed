package readers

import (
	"io"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
)

// ReadPUCCatalog lee el plan de cuentas del cliente (XLSX, hoja activa): código en la primera
// columna y descripción en la segunda. La primera fila es encabezado.
func ReadPUCCatalog(r io.Reader, source string) ([]onboarding.RawPUC, error) {
	f, err := openWorkbook(r)
	if err != nil {
		return nil, wrap(source, err)
	}
	defer f.Close()

	rows, err := readSheet(f, f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, wrap(source, err)
	}
	var out []onboarding.RawPUC
	for i := 1; i < len(rows); i++ {
		code := trimFloatSuffix(cell(rows[i], 0))
		if code == "" {
			continue
		}
		out = append(out, onboarding.RawPUC{Source: source, Row: i + 1, Code: code, Name: cell(rows[i], 1)})
	}
	return out, nil
}
