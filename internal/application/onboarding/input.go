package onboarding

// Filas crudas tal como las entregan los lectores. Todos los campos son texto: la
// interpretación (NIT, PUC, montos, fechas) la hace el pipeline con el normalizador.

// RawSupplier fila del modelo de terceros.
type RawSupplier struct {
	Source                 string
	Row                    int
	NIT                    string
	Name                   string
	Branch                 string
	FiscalResponsibilities string
	EconomicActivity       string
	City                   string
}

// RawCostRow fila del modelo de causación (cuenta PUC -> centro de costo).
type RawCostRow struct {
	Source        string
	Row           int
	PUC           string
	PUCName       string
	CostCenter    string
	SubCenter     string
	Value         string
	Description   string
	ThirdPartyNIT string
}

// RawLedgerRow fila del libro auxiliar. Value tiene prioridad; si viene vacío el valor es
// Debit - Credit. NITFormatted es la columna "NIT formateado" cuando el archivo la trae.
type RawLedgerRow struct {
	Source       string
	Row          int
	NIT          string
	NITFormatted string
	Name         string
	PUC          string
	Date         string
	Debit        string
	Credit       string
	Value        string
	Description  string
}

// RawInvoice metadatos extraídos de un documento dentro de un ZIP de facturas.
type RawInvoice struct {
	ZipName      string
	FileName     string
	NIT          string
	SupplierName string
	Number       string
	Date         string
	Total        string
	Description  string
	CUFE         string
	DocumentType string
}

// RawProduct fila del catálogo de productos.
type RawProduct struct {
	Source       string
	Row          int
	Code         string
	Name         string
	Description  string
	Price        string
	Line         string
	Group        string
	Unit         string
	SupplierNITs []string
}

// RawPUC fila del catálogo de códigos PUC del cliente.
type RawPUC struct {
	Source string
	Row    int
	Code   string
	Name   string
}

// Input flujos de registros de una corrida.
type Input struct {
	ClientID   string
	Suppliers  []RawSupplier
	CostModel  []RawCostRow
	Ledger     []RawLedgerRow
	Invoices   []RawInvoice
	Products   []RawProduct
	PUCCatalog []RawPUC
}

// Rows cantidad total de filas recibidas.
func (in Input) Rows() int {
	return len(in.Suppliers) + len(in.CostModel) + len(in.Ledger) + len(in.Invoices) + len(in.Products) + len(in.PUCCatalog)
}
