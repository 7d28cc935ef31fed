// Package dian contiene catálogos y validaciones tributarias de Colombia usadas
// al normalizar terceros, cuentas PUC y documentos electrónicos de proveedores.
package dian

import "strings"

// =============================================================================
// Tabla 17 - Tipos de Responsabilidad Fiscal (Anexo 1.9 - 13.2.7.1)
// Códigos que identifican las obligaciones tributarias del contribuyente en el RUT.
// En el anexo figuran como "0-XX"; en sistemas se usa también "O-XX" (letra O).
// =============================================================================

const (
	TaxLevelGranContribuyente  = "O-13"    // Gran contribuyente
	TaxLevelAutorretenedor     = "O-15"    // Autorretenedor
	TaxLevelAgenteRetencionIVA = "O-23"    // Agente de retención en el impuesto sobre las ventas
	TaxLevelRegimenSimple      = "O-47"    // Régimen Simple de Tributación – SIMPLE
	TaxLevelResponsableIVA     = "O-48"    // Responsable de IVA (Impuesto sobre las Ventas)
	TaxLevelNoResponsableIVA   = "O-49"    // No responsable de IVA
	TaxLevelNoAplicaOtros      = "R-99-PN" // No Aplica - Otros
)

// ValidFiscalResponsibilityCodes contiene los códigos de responsabilidad fiscal válidos (DIAN),
// ya en forma canónica (ver CanonicalFiscalCode).
var ValidFiscalResponsibilityCodes = map[string]bool{
	TaxLevelGranContribuyente:  true,
	TaxLevelAutorretenedor:     true,
	TaxLevelAgenteRetencionIVA: true,
	TaxLevelRegimenSimple:      true,
	TaxLevelResponsableIVA:     true,
	TaxLevelNoResponsableIVA:   true,
	TaxLevelNoAplicaOtros:      true,
}

// CanonicalFiscalCode lleva "0-13", "o-13" u "O 13" a la forma "O-13".
func CanonicalFiscalCode(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	c = strings.ReplaceAll(c, " ", "-")
	if strings.HasPrefix(c, "0-") {
		c = "O-" + c[2:]
	}
	return c
}

// SplitFiscalCodes separa la celda de responsabilidades (";", "," o saltos de línea)
// y devuelve los códigos canónicos en el orden en que aparecen, sin duplicados.
func SplitFiscalCodes(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n' || r == '|'
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		c := CanonicalFiscalCode(f)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// =============================================================================
// Tabla 6 - Unidades de Medida (Anexo 1.9 - 13.3.6 Unidades de Cantidad @unitCode)
// =============================================================================

const (
	UnitUnit        = "94"  // Unidad
	UnitKilogram    = "KGM" // Kilogramo
	UnitGram        = "GRM" // Gramo
	UnitLitre       = "LTR" // Litro
	UnitMetre       = "MTR" // Metro
	UnitSquareMetre = "MTK" // Metro cuadrado
	UnitCubicMetre  = "MTQ" // Metro cúbico
	UnitDozen       = "DZN" // Docena
	UnitHour        = "HUR" // Hora
	UnitDay         = "DAY" // Día
)

// ValidMeasurementUnitCodes códigos de unidad de medida válidos (uso común en facturación).
var ValidMeasurementUnitCodes = map[string]bool{
	UnitUnit: true, UnitKilogram: true, UnitGram: true, UnitLitre: true,
	UnitMetre: true, UnitSquareMetre: true, UnitCubicMetre: true,
	UnitDozen: true, UnitHour: true, UnitDay: true,
}

// =============================================================================
// Tipos de documento electrónico (InvoiceTypeCode / CreditNote / DebitNote)
// =============================================================================

const (
	DocumentTypeInvoice    = "01" // Factura electrónica de venta
	DocumentTypeExport     = "02" // Factura de exportación
	DocumentTypeCreditNote = "91" // Nota crédito
	DocumentTypeDebitNote  = "92" // Nota débito
)

// =============================================================================
// Plan Único de Cuentas (Decreto 2650 de 1993) - clases
// =============================================================================

// PUCClasses nombre de cada clase del PUC (primer dígito del código).
var PUCClasses = map[string]string{
	"1": "Activo",
	"2": "Pasivo",
	"3": "Patrimonio",
	"4": "Ingresos",
	"5": "Gastos",
	"6": "Costos de ventas",
	"7": "Costos de producción o de operación",
	"8": "Cuentas de orden deudoras",
	"9": "Cuentas de orden acreedoras",
}

// =============================================================================
// Tabla 3 - Tipos de identificación (Anexo 1.9 - 13.2.1)
// =============================================================================

const (
	IdentificationTypeNIT = "31" // NIT - requiere dígito de verificación
	IdentificationTypeCC  = "13" // Cédula de ciudadanía
)
