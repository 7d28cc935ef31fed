// Package report exporta el resultado de una corrida: JSON para integraciones, XLSX para el
// contador y un PDF de una página con el resumen.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/onboarding-contable/internal/application/dto"
	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain"
)

// Format formato de salida.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat "" equivale a JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: formato de reporte %q", domain.ErrInvalidInput, s)
	}
}

// ContentType tipo MIME del formato.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Ext extensión de archivo del formato.
func (f Format) Ext() string { return "." + string(f) }

// Write escribe el resultado en el formato pedido.
func Write(ctx context.Context, w io.Writer, res *onboarding.Result, f Format) error {
	var (
		b   []byte
		err error
	)
	switch f {
	case FormatXLSX:
		b, err = XLSX(res)
	case FormatPDF:
		b, err = PDF(ctx, res)
	case FormatJSON, "":
		return WriteJSON(w, res, true)
	default:
		return fmt.Errorf("%w: formato de reporte %q", domain.ErrInvalidInput, f)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteJSON escribe la respuesta de la corrida indentada. Los montos salen como cadenas
// decimales exactas.
func WriteJSON(w io.Writer, res *onboarding.Result, withAudit bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto.FromResult(res, withAudit)); err != nil {
		return fmt.Errorf("report: json: %w", err)
	}
	return nil
}
