package entity

// Flag marca una condición detectada al normalizar o registrar un registro.
// Las marcas nunca detienen la corrida: se conservan en el registro y en la auditoría.
type Flag string

const (
	FlagCheckDigitMismatch Flag = "checkDigitMismatch"
	FlagNonStandardDepth   Flag = "nonStandardDepth"
	FlagMissingParent      Flag = "missingParent"      // StructuralInconsistency del PUC
	FlagCostCenterConflict Flag = "costCenterConflict" // mismo PUC con centros de costo distintos entre archivos
	FlagUnknownFiscalCode  Flag = "unknownFiscalCode"
	FlagProvisional        Flag = "provisional" // proveedor sin NIT
	FlagNegativePrice      Flag = "negativePrice"
	FlagNITColumnConflict  Flag = "nitColumnConflict"
	FlagUnparseableDate    Flag = "unparseableDate"
	FlagInvalidAmount      Flag = "invalidAmount"
	FlagInvalidPUC         Flag = "invalidPUC"
	FlagMissingNIT         Flag = "missingNIT"
)

// Flags conjunto ordenado de marcas (orden de aparición, sin duplicados).
type Flags []Flag

// Has indica si la marca está presente.
func (f Flags) Has(flag Flag) bool {
	for _, x := range f {
		if x == flag {
			return true
		}
	}
	return false
}

// Add agrega la marca si no existe.
func (f *Flags) Add(flag Flag) {
	if f.Has(flag) {
		return
	}
	*f = append(*f, flag)
}

// Strings devuelve las marcas como strings (para serializar).
func (f Flags) Strings() []string {
	out := make([]string, len(f))
	for i, x := range f {
		out[i] = string(x)
	}
	return out
}
