package entity

// SupplierID identificador canónico del proveedor: base del NIT (solo dígitos, sin DV)
// o un identificador provisional "SIN-NIT-0001" cuando ninguna fuente trae NIT.
type SupplierID string

// Supplier representa un tercero proveedor consolidado entre fuentes.
// NIT identifica de forma única al proveedor; las distintas grafías de la razón social
// quedan en Aliases.
type Supplier struct {
	ID                     SupplierID
	NIT                    string // forma canónica "base-DV"; vacío si es provisional
	LegalName              string // razón social tal como se vio por primera vez
	Branch                 string // sucursal
	FiscalResponsibilities []string
	EconomicActivity       string // código CIIU
	City                   string
	Aliases                []string
	Sources                []string
	Flags                  Flags
}

// SupplierAttrs atributos opcionales al registrar un proveedor.
type SupplierAttrs struct {
	Branch                 string
	FiscalResponsibilities []string
	EconomicActivity       string
	City                   string
	Source                 string
}

// HasAlias indica si raw ya está registrado como alias (comparación exacta).
func (s *Supplier) HasAlias(raw string) bool {
	for _, a := range s.Aliases {
		if a == raw {
			return true
		}
	}
	return false
}
