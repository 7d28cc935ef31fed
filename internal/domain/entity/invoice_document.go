package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceHandle referencia estable al documento: "zip!archivo". Los bytes los conserva el lector.
type InvoiceHandle string

// NewInvoiceHandle construye el handle a partir del ZIP y del archivo interno.
func NewInvoiceHandle(zipName, fileName string) InvoiceHandle {
	return InvoiceHandle(zipName + "!" + fileName)
}

// InvoiceDocument factura de proveedor extraída de un ZIP (PDF y XML opcional).
// Todos los metadatos son opcionales: la calidad de la extracción varía.
type InvoiceDocument struct {
	Handle       InvoiceHandle
	ZipName      string
	FileName     string
	NIT          string // base del NIT del emisor, vacío si no se extrajo
	SupplierName string
	Number       string
	Date         time.Time
	Total        decimal.NullDecimal
	Description  string
	CUFE         string
	DocumentType string
	Flags        Flags
}

// HasIdentifyingFields indica si la factura trae al menos un dato útil para buscar candidatos.
func (d *InvoiceDocument) HasIdentifyingFields() bool {
	return d.NIT != "" || d.Total.Valid || !d.Date.IsZero()
}
