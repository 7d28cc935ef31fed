package entity

import "github.com/shopspring/decimal"

// Product producto del catálogo del cliente. Code es el código interno; si el catálogo
// no trae código, se usa la tupla normalizada nombre|línea|unidad.
// Price nunca es negativo y está redondeado a la escala de la moneda (COP, 2 decimales).
type Product struct {
	Code         string
	Name         string
	Description  string
	Price        decimal.Decimal
	Line         string
	Group        string
	UnitMeasure  string
	SupplierNITs []string // bases de NIT de los proveedores que lo suministran
	Source       string
	Row          int
	Flags        Flags
}
