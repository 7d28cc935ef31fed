package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionID identificador estable de una transacción del libro auxiliar: source#row.
type TransactionID string

// NewTransactionID construye el identificador a partir del archivo y la fila.
func NewTransactionID(source string, row int) TransactionID {
	return TransactionID(fmt.Sprintf("%s#%d", source, row))
}

// LedgerTransaction fila del libro auxiliar de proveedores.
// Value es con signo: débito positivo, crédito negativo.
type LedgerTransaction struct {
	ID           TransactionID
	NIT          string // base del NIT (sin DV)
	SupplierID   SupplierID
	SupplierName string // razón social tal como viene en el archivo
	PUC          string
	Date         time.Time // cero si la fecha no se pudo interpretar
	Value        decimal.Decimal
	Description  string
	InvoiceRef   string // número de factura extraído de la descripción
	Source       string
	Row          int
	Flags        Flags
}
