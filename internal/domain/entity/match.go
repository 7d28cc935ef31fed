package entity

import "github.com/shopspring/decimal"

// MatchStatus estado de un par (transacción, factura) en la conciliación.
type MatchStatus string

const (
	MatchUnmatched MatchStatus = "Unmatched"
	MatchCandidate MatchStatus = "Candidate"
	MatchAccepted  MatchStatus = "Accepted"
	MatchAmbiguous MatchStatus = "Ambiguous"
	MatchRejected  MatchStatus = "Rejected"
)

// Evidencias que puede aportar un candidato.
const (
	EvidenceNIT           = "nit"
	EvidenceSupplierAlias = "supplierAlias" // fila sin NIT resuelta al proveedor por razón social
	EvidenceAmountExact   = "amountExact"
	EvidenceAmountNear    = "amountNear"
	EvidenceAmountFar     = "amountFar"
	EvidenceDate          = "dateProximity"
	EvidenceDescription   = "description"
	EvidenceInvoiceNumber = "invoiceNumber"
)

// ScoreBreakdown aporte de cada señal al puntaje (ya multiplicado por su peso).
type ScoreBreakdown struct {
	NIT         float64 `json:"nit"`
	Amount      float64 `json:"amount"`
	Date        float64 `json:"date"`
	Description float64 `json:"description"`
}

// Total suma de los aportes.
func (b ScoreBreakdown) Total() float64 {
	return b.NIT + b.Amount + b.Date + b.Description
}

// MatchRecord decisión final sobre un par o sobre un lado sin pareja.
// Para registros Unmatched de un solo lado, TransactionID o InvoiceHandle queda vacío.
type MatchRecord struct {
	TransactionID    TransactionID
	Source           string
	Row              int
	InvoiceHandle    InvoiceHandle
	Status           MatchStatus
	Score            float64
	Breakdown        ScoreBreakdown
	Evidence         []string
	Rule             string
	Reason           string
	SupplierID       SupplierID
	ProductCode      string
	CostCenter       string
	TransactionValue decimal.NullDecimal
	InvoiceTotal     decimal.NullDecimal
}
