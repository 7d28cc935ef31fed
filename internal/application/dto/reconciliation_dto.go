package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
)

// RunRequest parámetros de una corrida enviada por HTTP (multipart). Los archivos van en
// campos con el nombre del tipo: terceros, auxiliar, causacion, puc, productos, facturas.
type RunRequest struct {
	ClientID   string   `form:"client_id" validate:"required,min=1,max=100"`
	PUCClasses []string `form:"puc_classes" validate:"omitempty,dive,len=1,numeric"`
	Format     string   `query:"format" validate:"omitempty,oneof=json xlsx pdf"`
}

// MatchRecordResponse decisión de conciliación.
type MatchRecordResponse struct {
	TransactionID    string                `json:"transaction_id,omitempty"`
	Source           string                `json:"source,omitempty"`
	Row              int                   `json:"row,omitempty"`
	InvoiceHandle    string                `json:"invoice_handle,omitempty"`
	Status           string                `json:"status"`
	Score            float64               `json:"score"`
	Breakdown        entity.ScoreBreakdown `json:"breakdown"`
	Evidence         []string              `json:"evidence,omitempty"`
	Rule             string                `json:"rule,omitempty"`
	Reason           string                `json:"reason,omitempty"`
	SupplierID       string                `json:"supplier_id,omitempty"`
	ProductCode      string                `json:"product_code,omitempty"`
	CostCenter       string                `json:"cost_center,omitempty"`
	TransactionValue *decimal.Decimal      `json:"transaction_value,omitempty"`
	InvoiceTotal     *decimal.Decimal      `json:"invoice_total,omitempty"`
}

// SupplierResponse proveedor consolidado.
type SupplierResponse struct {
	ID                     string   `json:"id"`
	NIT                    string   `json:"nit,omitempty"`
	LegalName              string   `json:"legal_name"`
	Branch                 string   `json:"branch,omitempty"`
	FiscalResponsibilities []string `json:"fiscal_responsibilities,omitempty"`
	EconomicActivity       string   `json:"economic_activity,omitempty"`
	City                   string   `json:"city,omitempty"`
	Aliases                []string `json:"aliases,omitempty"`
	Flags                  []string `json:"flags,omitempty"`
}

// TransactionResponse transacción del libro auxiliar.
type TransactionResponse struct {
	ID           string          `json:"id"`
	NIT          string          `json:"nit,omitempty"`
	SupplierID   string          `json:"supplier_id,omitempty"`
	SupplierName string          `json:"supplier_name,omitempty"`
	PUC          string          `json:"puc"`
	Date         *time.Time      `json:"date,omitempty"`
	Value        decimal.Decimal `json:"value"`
	Description  string          `json:"description,omitempty"`
	InvoiceRef   string          `json:"invoice_ref,omitempty"`
	Flags        []string        `json:"flags,omitempty"`
}

// RunResponse salida completa de una corrida.
type RunResponse struct {
	RunID           string                `json:"run_id"`
	ClientID        string                `json:"client_id"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`
	RegistryVersion int                   `json:"registry_version"`
	Summary         onboarding.Summary    `json:"summary"`
	Records         []MatchRecordResponse `json:"records"`
	Suppliers       []SupplierResponse    `json:"suppliers"`
	Transactions    []TransactionResponse `json:"transactions"`
	Audit           []audit.Event         `json:"audit,omitempty"`
}

// RunSummaryResponse corrida almacenada, sin detalle.
type RunSummaryResponse struct {
	RunID      string             `json:"run_id"`
	ClientID   string             `json:"client_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Summary    onboarding.Summary `json:"summary"`
}

// FromResult arma la respuesta. withAudit incluye la bitácora completa.
func FromResult(res *onboarding.Result, withAudit bool) RunResponse {
	out := RunResponse{
		RunID:           res.RunID,
		ClientID:        res.ClientID,
		StartedAt:       res.StartedAt,
		FinishedAt:      res.FinishedAt,
		RegistryVersion: res.RegistryVersion,
		Summary:         res.Summary,
		Records:         make([]MatchRecordResponse, 0, len(res.Records)),
		Suppliers:       make([]SupplierResponse, 0, len(res.Suppliers)),
		Transactions:    make([]TransactionResponse, 0, len(res.Transactions)),
	}
	for _, r := range res.Records {
		out.Records = append(out.Records, FromMatchRecord(r))
	}
	for _, s := range res.Suppliers {
		out.Suppliers = append(out.Suppliers, SupplierResponse{
			ID:                     string(s.ID),
			NIT:                    s.NIT,
			LegalName:              s.LegalName,
			Branch:                 s.Branch,
			FiscalResponsibilities: s.FiscalResponsibilities,
			EconomicActivity:       s.EconomicActivity,
			City:                   s.City,
			Aliases:                s.Aliases,
			Flags:                  s.Flags.Strings(),
		})
	}
	for _, tx := range res.Transactions {
		t := TransactionResponse{
			ID:           string(tx.ID),
			NIT:          tx.NIT,
			SupplierID:   string(tx.SupplierID),
			SupplierName: tx.SupplierName,
			PUC:          tx.PUC,
			Value:        tx.Value,
			Description:  tx.Description,
			InvoiceRef:   tx.InvoiceRef,
			Flags:        tx.Flags.Strings(),
		}
		if !tx.Date.IsZero() {
			d := tx.Date
			t.Date = &d
		}
		out.Transactions = append(out.Transactions, t)
	}
	if withAudit {
		out.Audit = res.Audit
	}
	return out
}

// FromMatchRecord convierte un registro de conciliación.
func FromMatchRecord(r entity.MatchRecord) MatchRecordResponse {
	m := MatchRecordResponse{
		TransactionID: string(r.TransactionID),
		Source:        r.Source,
		Row:           r.Row,
		InvoiceHandle: string(r.InvoiceHandle),
		Status:        string(r.Status),
		Score:         r.Score,
		Breakdown:     r.Breakdown,
		Evidence:      r.Evidence,
		Rule:          r.Rule,
		Reason:        r.Reason,
		SupplierID:    string(r.SupplierID),
		ProductCode:   r.ProductCode,
		CostCenter:    r.CostCenter,
	}
	if r.TransactionValue.Valid {
		v := r.TransactionValue.Decimal
		m.TransactionValue = &v
	}
	if r.InvoiceTotal.Valid {
		v := r.InvoiceTotal.Decimal
		m.InvoiceTotal = &v
	}
	return m
}
