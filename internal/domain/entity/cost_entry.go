package entity

import "github.com/shopspring/decimal"

// CostEntry fila del modelo de causación: cómo una cuenta PUC se asigna a centros de costo.
type CostEntry struct {
	ID            string // source#row
	PUC           string // código canónico (solo dígitos)
	PUCName       string
	CostCenter    string
	SubCenter     string
	Value         decimal.Decimal
	Description   string
	ThirdPartyNIT string // base del NIT del tercero asociado
	Source        string
	Row           int
	Flags         Flags
}

// CostCenterKey identifica la asignación (centro, subcentro) de una entrada.
func (e *CostEntry) CostCenterKey() string {
	if e.SubCenter == "" {
		return e.CostCenter
	}
	return e.CostCenter + "/" + e.SubCenter
}
