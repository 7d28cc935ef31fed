package onboarding

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
	"github.com/jhoicas/onboarding-contable/pkg/dian"
)

// supplierSighting aparición de un proveedor en cualquier fuente; el NIT va crudo porque el
// registro lo vuelve a interpretar para conservar la marca de DV incorrecto.
type supplierSighting struct {
	nit   string
	name  string
	attrs entity.SupplierAttrs
}

// batch filas ya normalizadas de una corrida.
type batch struct {
	sightings []supplierSighting
	costs     []entity.CostEntry
	txs       []entity.LedgerTransaction
	invoices  []entity.InvoiceDocument
	products  []entity.Product
	pucs      []RawPUC
	filtered  int // filas del libro auxiliar fuera de las clases PUC configuradas
	skipped   int // filas sin datos utilizables
}

// normalizeInput recorre los flujos en un orden fijo (terceros, PUC, causación, auxiliar,
// facturas, productos) para que la bitácora sea reproducible.
func normalizeInput(norm *normalize.Normalizer, in Input, classes map[string]bool) *batch {
	b := &batch{pucs: in.PUCCatalog}
	for _, r := range in.Suppliers {
		b.addSupplier(norm, r)
	}
	for _, r := range in.CostModel {
		b.addCostRow(norm, r)
	}
	for _, r := range in.Ledger {
		b.addLedgerRow(norm, r, classes)
	}
	for _, r := range in.Invoices {
		b.addInvoice(norm, r)
	}
	for _, r := range in.Products {
		b.addProduct(norm, r)
	}
	return b
}

func subject(source string, row int) string {
	return fmt.Sprintf("%s#%d", source, row)
}

func (b *batch) addSupplier(norm *normalize.Normalizer, r RawSupplier) {
	if strings.TrimSpace(r.NIT) == "" && strings.TrimSpace(r.Name) == "" {
		b.skipped++
		return
	}
	b.sightings = append(b.sightings, supplierSighting{
		nit:  r.NIT,
		name: strings.TrimSpace(r.Name),
		attrs: entity.SupplierAttrs{
			Branch:                 r.Branch,
			FiscalResponsibilities: nonEmpty(r.FiscalResponsibilities),
			EconomicActivity:       r.EconomicActivity,
			City:                   r.City,
			Source:                 r.Source,
		},
	})
}

func (b *batch) addCostRow(norm *normalize.Normalizer, r RawCostRow) {
	subj := subject(r.Source, r.Row)
	puc, err := norm.PUC(r.PUC, subj)
	if err != nil {
		b.skipped++
		return
	}
	e := entity.CostEntry{
		ID:          subj,
		PUC:         puc.Code,
		PUCName:     strings.TrimSpace(r.PUCName),
		CostCenter:  strings.TrimSpace(r.CostCenter),
		SubCenter:   strings.TrimSpace(r.SubCenter),
		Description: strings.TrimSpace(r.Description),
		Source:      r.Source,
		Row:         r.Row,
	}
	if !puc.Standard() {
		e.Flags.Add(entity.FlagNonStandardDepth)
	}
	if strings.TrimSpace(r.Value) != "" {
		if v, err := norm.Amount(r.Value, subj); err == nil {
			e.Value = v.Value
		} else {
			e.Flags.Add(entity.FlagInvalidAmount)
		}
	}
	if strings.TrimSpace(r.ThirdPartyNIT) != "" {
		if nit, err := norm.NIT(r.ThirdPartyNIT, subj); err == nil {
			e.ThirdPartyNIT = nit.Base
			b.sightings = append(b.sightings, supplierSighting{nit: sightingNIT(nit, r.ThirdPartyNIT), attrs: entity.SupplierAttrs{Source: r.Source}})
		}
	}
	b.costs = append(b.costs, e)
}

// addLedgerRow arma la transacción. Si el archivo trae la columna de NIT formateado y no
// coincide con la de NIT, gana la formateada y la fila queda marcada.
func (b *batch) addLedgerRow(norm *normalize.Normalizer, r RawLedgerRow, classes map[string]bool) {
	subj := subject(r.Source, r.Row)
	tx := entity.LedgerTransaction{
		ID:           entity.NewTransactionID(r.Source, r.Row),
		SupplierName: strings.TrimSpace(r.Name),
		Description:  strings.TrimSpace(r.Description),
		Source:       r.Source,
		Row:          r.Row,
	}

	puc, err := norm.PUC(r.PUC, subj)
	switch {
	case err != nil:
		if len(classes) > 0 {
			b.filtered++
			return
		}
		tx.Flags.Add(entity.FlagInvalidPUC)
	case len(classes) > 0 && !classes[puc.Class()]:
		b.filtered++
		return
	default:
		tx.PUC = puc.Code
		if !puc.Standard() {
			tx.Flags.Add(entity.FlagNonStandardDepth)
		}
	}

	var nitSeen string
	if nit, raw, ok := ledgerNIT(norm, r, subj, &tx.Flags); ok {
		tx.NIT = nit.Base
		tx.SupplierID = entity.SupplierID(nit.Base)
		if nit.Mismatch() {
			tx.Flags.Add(entity.FlagCheckDigitMismatch)
		}
		nitSeen = sightingNIT(nit, raw)
	} else {
		tx.Flags.Add(entity.FlagMissingNIT)
	}
	if tx.NIT != "" || tx.SupplierName != "" {
		b.sightings = append(b.sightings, supplierSighting{nit: nitSeen, name: tx.SupplierName, attrs: entity.SupplierAttrs{Source: r.Source}})
	}

	if d, err := norm.Date(r.Date, subj); err == nil {
		tx.Date = d.Value
	} else {
		tx.Flags.Add(entity.FlagUnparseableDate)
	}
	tx.Value = ledgerValue(norm, r, subj, &tx.Flags)
	tx.InvoiceRef = normalize.InvoiceRef(tx.Description)
	b.txs = append(b.txs, tx)
}

// ledgerNIT NIT elegido para la fila y su texto crudo; ok es false si ninguna columna es legible.
func ledgerNIT(norm *normalize.Normalizer, r RawLedgerRow, subj string, flags *entity.Flags) (normalize.NIT, string, bool) {
	var plain, formatted normalize.NIT
	var plainErr, formattedErr error = normalize.ErrEmpty, normalize.ErrEmpty
	if strings.TrimSpace(r.NIT) != "" {
		plain, plainErr = norm.NIT(r.NIT, subj)
	}
	if strings.TrimSpace(r.NITFormatted) != "" {
		formatted, formattedErr = norm.NIT(r.NITFormatted, subj)
	}
	switch {
	case formattedErr == nil:
		if plainErr == nil && plain.Base != formatted.Base {
			flags.Add(entity.FlagNITColumnConflict)
		}
		return formatted, r.NITFormatted, true
	case plainErr == nil:
		return plain, r.NIT, true
	default:
		return normalize.NIT{}, "", false
	}
}

// sightingNIT texto con el que el proveedor llega al registro: la forma canónica, salvo que
// el DV de la fuente no cuadre, para que el registro conserve la marca.
func sightingNIT(n normalize.NIT, raw string) string {
	if n.Mismatch() {
		return raw
	}
	return n.String()
}

func ledgerValue(norm *normalize.Normalizer, r RawLedgerRow, subj string, flags *entity.Flags) decimal.Decimal {
	if strings.TrimSpace(r.Value) != "" {
		v, err := norm.Amount(r.Value, subj)
		if err != nil {
			flags.Add(entity.FlagInvalidAmount)
			return decimal.Zero
		}
		return v.Value
	}
	value := decimal.Zero
	for i, raw := range []string{r.Debit, r.Credit} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := norm.Amount(raw, subj)
		if err != nil {
			flags.Add(entity.FlagInvalidAmount)
			continue
		}
		if i == 0 {
			value = value.Add(v.Value)
		} else {
			value = value.Sub(v.Value)
		}
	}
	return value
}

func (b *batch) addInvoice(norm *normalize.Normalizer, r RawInvoice) {
	h := entity.NewInvoiceHandle(r.ZipName, r.FileName)
	subj := string(h)
	inv := entity.InvoiceDocument{
		Handle:       h,
		ZipName:      r.ZipName,
		FileName:     r.FileName,
		SupplierName: strings.TrimSpace(r.SupplierName),
		Number:       strings.ToUpper(strings.TrimSpace(r.Number)),
		Description:  strings.TrimSpace(r.Description),
		CUFE:         strings.TrimSpace(r.CUFE),
		DocumentType: strings.TrimSpace(r.DocumentType),
	}
	var nitSeen string
	if strings.TrimSpace(r.NIT) != "" {
		if nit, err := norm.NIT(r.NIT, subj); err == nil {
			inv.NIT = nit.Base
			if nit.Mismatch() {
				inv.Flags.Add(entity.FlagCheckDigitMismatch)
			}
			nitSeen = sightingNIT(nit, r.NIT)
		}
	}
	if strings.TrimSpace(r.Date) != "" {
		if d, err := norm.Date(r.Date, subj); err == nil {
			inv.Date = d.Value
		} else {
			inv.Flags.Add(entity.FlagUnparseableDate)
		}
	}
	if strings.TrimSpace(r.Total) != "" {
		if v, err := norm.Amount(r.Total, subj); err == nil {
			inv.Total = decimal.NewNullDecimal(v.Value)
		} else {
			inv.Flags.Add(entity.FlagInvalidAmount)
		}
	}
	if inv.NIT != "" || inv.SupplierName != "" {
		b.sightings = append(b.sightings, supplierSighting{nit: nitSeen, name: inv.SupplierName, attrs: entity.SupplierAttrs{Source: r.ZipName}})
	}
	b.invoices = append(b.invoices, inv)
}

// addProduct aplica los valores por defecto del catálogo: nombre "Producto N" y unidad 94.
func (b *batch) addProduct(norm *normalize.Normalizer, r RawProduct) {
	subj := subject(r.Source, r.Row)
	p := entity.Product{
		Code:        strings.TrimSpace(r.Code),
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		Line:        strings.TrimSpace(r.Line),
		Group:       strings.TrimSpace(r.Group),
		UnitMeasure: strings.TrimSpace(r.Unit),
		Source:      r.Source,
		Row:         r.Row,
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("Producto %d", r.Row)
	}
	if p.UnitMeasure == "" {
		p.UnitMeasure = dian.UnitUnit
	}
	if strings.TrimSpace(r.Price) != "" {
		if v, err := norm.Amount(r.Price, subj); err == nil {
			p.Price = v.Value
		} else {
			p.Flags.Add(entity.FlagInvalidAmount)
		}
	}
	for _, raw := range r.SupplierNITs {
		if nit, err := norm.NIT(raw, subj); err == nil {
			p.SupplierNITs = append(p.SupplierNITs, nit.String())
		}
	}
	b.products = append(b.products, p)
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{s}
}
