package onboarding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/domain/ledger"
)

func fixedClock() time.Time { return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC) }

func newPipeline(workers int, store onboarding.ResultStore, locker onboarding.RunLocker) *onboarding.Pipeline {
	opts := onboarding.DefaultOptions()
	opts.Workers = workers
	return onboarding.NewPipeline(opts, nil, store, locker,
		onboarding.WithClock(fixedClock),
		onboarding.WithRunID(func() string { return "run-test" }),
	)
}

// sampleInput un proveedor con NIT y factura exacta, uno sin NIT con factura sin NIT,
// una cuenta de activo que se filtra y una transacción sin factura.
func sampleInput() onboarding.Input {
	return onboarding.Input{
		ClientID: "cliente-1",
		Suppliers: []onboarding.RawSupplier{
			{Source: "terceros.csv", Row: 2, NIT: "900.123.456-8", Name: "Ferretería El Tornillo S.A.S.", FiscalResponsibilities: "O-13;O-15"},
			{Source: "terceros.csv", Row: 3, Name: "Servicios Andinos Ltda"},
		},
		PUCCatalog: []onboarding.RawPUC{
			{Source: "puc.xlsx", Row: 2, Code: "5135", Name: "Servicios"},
			{Source: "puc.xlsx", Row: 3, Code: "513525", Name: "Acueducto y alcantarillado"},
		},
		CostModel: []onboarding.RawCostRow{
			{Source: "causacion.xlsx", Row: 2, PUC: "51352501", CostCenter: "ADM"},
		},
		Ledger: []onboarding.RawLedgerRow{
			{Source: "aux.csv", Row: 5, NIT: "900123456", Name: "FERRETERIA EL TORNILLO SAS", PUC: "51352501", Date: "08/03/2024", Debit: "1.190.000", Description: "FV-1234 compra tornillos"},
			{Source: "aux.csv", Row: 6, Name: "Servicios Andinos Ltda.", PUC: "513530", Date: "15/03/2024", Debit: "500.000,00", Description: "honorarios"},
			{Source: "aux.csv", Row: 7, NIT: "900123456", PUC: "110505", Date: "15/03/2024", Debit: "10.000"},
			{Source: "aux.csv", Row: 8, NIT: "800197268", Name: "DIAN", PUC: "6135", Date: "20/03/2024", Debit: "75000"},
		},
		Invoices: []onboarding.RawInvoice{
			{ZipName: "facturas.zip", FileName: "FV-1234.xml", NIT: "900123456-8", SupplierName: "Ferretería El Tornillo S.A.S.", Number: "FV-1234", Date: "2024-03-10", Total: "1190000.00", Description: "Tornillos acero"},
			{ZipName: "facturas.zip", FileName: "andinos.pdf", Date: "2024-03-15", Total: "500000", Description: "Honorarios marzo"},
		},
		Products: []onboarding.RawProduct{
			{Source: "productos.csv", Row: 2, Name: "Tornillo acero galvanizado", Price: "1.500", SupplierNITs: []string{"900123456-8"}},
			{Source: "productos.csv", Row: 3, Price: "2000"},
		},
	}
}

func record(t *testing.T, res *onboarding.Result, tx entity.TransactionID) entity.MatchRecord {
	t.Helper()
	for _, r := range res.Records {
		if r.TransactionID == tx {
			return r
		}
	}
	t.Fatalf("no hay registro para %s", tx)
	return entity.MatchRecord{}
}

type memStore struct{ saved []*onboarding.Result }

func (m *memStore) SaveRun(_ context.Context, res *onboarding.Result) error {
	m.saved = append(m.saved, res)
	return nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return nil, domain.ErrRunLocked
}

type countingLocker struct{ acquired, released int }

func (l *countingLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	l.acquired++
	return func(context.Context) error { l.released++; return nil }, nil
}

// ─── Corrida completa ─────────────────────────────────────────────────────────

func TestRun_ConciliaDeExtremoAExtremo(t *testing.T) {
	store := &memStore{}
	res, err := newPipeline(4, store, nil).Run(context.Background(), sampleInput())
	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "run-test", res.RunID)

	exact := record(t, res, "aux.csv#5")
	assert.Equal(t, entity.MatchAccepted, exact.Status)
	assert.Equal(t, entity.InvoiceHandle("facturas.zip!FV-1234.xml"), exact.InvoiceHandle)
	assert.InDelta(t, 0.99, exact.Score, 1e-9)
	assert.Equal(t, entity.SupplierID("900123456"), exact.SupplierID)
	assert.Equal(t, "ADM", exact.CostCenter)
	assert.Equal(t, "TORNILLO ACERO GALVANIZADO||94", exact.ProductCode)
	assert.Contains(t, exact.Evidence, entity.EvidenceInvoiceNumber)

	byAmount := record(t, res, "aux.csv#6")
	assert.Equal(t, entity.MatchAmbiguous, byAmount.Status)
	assert.InDelta(t, 0.60, byAmount.Score, 1e-9)
	assert.Equal(t, entity.SupplierID("SIN-NIT-0001"), byAmount.SupplierID)

	orphan := record(t, res, "aux.csv#8")
	assert.Equal(t, entity.MatchUnmatched, orphan.Status)
	assert.Empty(t, orphan.InvoiceHandle)
}

func TestRun_Resumen(t *testing.T) {
	res, err := newPipeline(2, nil, nil).Run(context.Background(), sampleInput())
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, 3, s.Transactions)
	assert.Equal(t, 1, s.FilteredRows)
	assert.Equal(t, 2, s.Invoices)
	assert.Equal(t, 3, s.Suppliers)
	assert.Equal(t, 1, s.Provisional)
	assert.Equal(t, 2, s.Products)
	assert.Equal(t, 1, s.ByStatus[entity.MatchAccepted])
	assert.Equal(t, 1, s.ByStatus[entity.MatchAmbiguous])
	assert.Equal(t, 1, s.ByStatus[entity.MatchUnmatched])
	assert.True(t, decimal.NewFromInt(1190000).Equal(s.AcceptedValue))

	require.Len(t, s.ByClass, 2)
	assert.Equal(t, "5", s.ByClass[0].Class)
	assert.Equal(t, "Gastos", s.ByClass[0].Name)
	assert.Equal(t, 2, s.ByClass[0].Transactions)
	assert.Equal(t, 1, s.ByClass[0].Accepted)
	assert.True(t, decimal.NewFromInt(1690000).Equal(s.ByClass[0].Value))
	assert.Equal(t, "6", s.ByClass[1].Class)
}

func TestRun_ResumenSinFiltroDeClases(t *testing.T) {
	opts := onboarding.DefaultOptions()
	opts.PUCClasses = nil
	in := sampleInput()
	in.Ledger = append(in.Ledger, onboarding.RawLedgerRow{Source: "aux.csv", Row: 9, NIT: "800197268", PUC: "cuenta", Date: "20/03/2024", Debit: "1.000"})
	res, err := onboarding.NewPipeline(opts, nil, nil, nil, onboarding.WithClock(fixedClock)).Run(context.Background(), in)
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, 5, s.Transactions)
	require.Len(t, s.ByClass, 4)
	classes := make(map[string]onboarding.ClassSummary)
	for _, c := range s.ByClass {
		classes[c.Class] = c
	}
	assert.Equal(t, 1, classes["1"].Transactions)
	assert.True(t, decimal.NewFromInt(10000).Equal(classes["1"].Value))
	assert.Equal(t, 2, classes["5"].Transactions)
	assert.Equal(t, 1, classes["6"].Transactions)
	assert.Equal(t, 1, classes["?"].Transactions, "sin PUC legible")
	assert.Equal(t, "?", s.ByClass[3].Class)
}

func TestRun_CatalogoDeProductos(t *testing.T) {
	res, err := newPipeline(1, nil, nil).Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Products)
	var found bool
	for _, e := range res.Audit {
		if e.Kind == audit.KindNormalization && e.Subject == "productos.csv#2" {
			found = true
		}
	}
	assert.True(t, found, "el precio con separador de miles debe quedar auditado")
}

func TestRun_BitacoraTraeTransicionesYFusiones(t *testing.T) {
	res, err := newPipeline(4, nil, nil).Run(context.Background(), sampleInput())
	require.NoError(t, err)

	var accepted, merged, frozen bool
	for _, e := range res.Audit {
		switch {
		case e.Kind == audit.KindTransition && e.Subject == "aux.csv#5" && e.Fields["to"] == string(entity.MatchAccepted):
			accepted = true
		case e.Kind == audit.KindRegistryMerge:
			merged = true
		case e.Kind == audit.KindRegistryFrozen:
			frozen = true
		}
		assert.Equal(t, "run-test", e.RunID)
	}
	assert.True(t, accepted)
	assert.True(t, merged, "la fila del auxiliar sin NIT se fusiona con el tercero por nombre")
	assert.True(t, frozen)
	for i, e := range res.Audit {
		assert.Equal(t, i+1, e.Seq)
	}
}

func TestRun_DeterministaConDistintosWorkers(t *testing.T) {
	a, err := newPipeline(1, nil, nil).Run(context.Background(), sampleInput())
	require.NoError(t, err)
	b, err := newPipeline(8, nil, nil).Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, a.Records, b.Records)
	assert.Equal(t, a.Audit, b.Audit)
}

// ─── Proveedor resuelto por el registro ───────────────────────────────────────

// tornilloInput fila del auxiliar sin NIT, solo con razón social, y factura con NIT del
// mismo proveedor, mismo valor y misma fecha.
func tornilloInput(withMaster bool) onboarding.Input {
	in := onboarding.Input{
		ClientID: "cliente-1",
		Ledger: []onboarding.RawLedgerRow{
			{Source: "aux.csv", Row: 5, Name: "FERRETERIA EL TORNILLO SAS", PUC: "51352501", Date: "10/03/2024", Debit: "1.250.000,00"},
		},
		Invoices: []onboarding.RawInvoice{
			{ZipName: "f.zip", FileName: "a.xml", NIT: "900123456-8", SupplierName: "Ferretería El Tornillo S.A.S.", Date: "2024-03-10", Total: "1250000"},
		},
	}
	if withMaster {
		in.Suppliers = []onboarding.RawSupplier{
			{Source: "terceros.csv", Row: 2, NIT: "900123456-8", Name: "Ferretería El Tornillo S.A.S."},
		}
	}
	return in
}

func TestRun_FilaSinNITSeConciliaConFacturaDelMismoProveedor(t *testing.T) {
	res, err := newPipeline(2, nil, nil).Run(context.Background(), tornilloInput(true))
	require.NoError(t, err)

	rec := record(t, res, "aux.csv#5")
	assert.Equal(t, entity.MatchAccepted, rec.Status)
	assert.Equal(t, entity.InvoiceHandle("f.zip!a.xml"), rec.InvoiceHandle)
	assert.Equal(t, entity.SupplierID("900123456"), rec.SupplierID)
	assert.InDelta(t, 0.90, rec.Score, 1e-9)
	assert.Contains(t, rec.Evidence, entity.EvidenceSupplierAlias)

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, entity.SupplierID("900123456"), res.Transactions[0].SupplierID)
	assert.True(t, res.Transactions[0].Flags.Has(entity.FlagMissingNIT))
}

func TestRun_FilaSinNITAntesQueElNITNoDejaProvisional(t *testing.T) {
	// sin maestro de terceros: el auxiliar (solo razón social) se registra antes que la factura
	res, err := newPipeline(1, nil, nil).Run(context.Background(), tornilloInput(false))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.Suppliers)
	assert.Zero(t, res.Summary.Provisional)
	rec := record(t, res, "aux.csv#5")
	assert.Equal(t, entity.MatchAccepted, rec.Status)
	assert.Equal(t, entity.SupplierID("900123456"), rec.SupplierID)

	var absorbed bool
	for _, e := range res.Audit {
		if e.Kind == audit.KindRegistryMerge && e.Fields["absorbed"] == "SIN-NIT-0001" {
			absorbed = true
		}
	}
	assert.True(t, absorbed)
}

// ─── Columnas de NIT del auxiliar ─────────────────────────────────────────────

func TestRun_NITFormateadoGanaYSeMarcaConflicto(t *testing.T) {
	in := sampleInput()
	in.Ledger[3].NIT = "900123456"
	in.Ledger[3].NITFormatted = "800.197.268-4"
	res, err := newPipeline(1, nil, nil).Run(context.Background(), in)
	require.NoError(t, err)

	var tx entity.LedgerTransaction
	for _, x := range res.Transactions {
		if x.ID == "aux.csv#8" {
			tx = x
		}
	}
	assert.Equal(t, "800197268", tx.NIT)
	assert.True(t, tx.Flags.Has(entity.FlagNITColumnConflict))
}

func TestRun_SinNITMarcaLaTransaccion(t *testing.T) {
	res, err := newPipeline(1, nil, nil).Run(context.Background(), sampleInput())
	require.NoError(t, err)
	for _, tx := range res.Transactions {
		if tx.ID == "aux.csv#6" {
			assert.True(t, tx.Flags.Has(entity.FlagMissingNIT))
			assert.Equal(t, entity.SupplierID("SIN-NIT-0001"), tx.SupplierID)
			return
		}
	}
	t.Fatal("falta la transacción aux.csv#6")
}

// ─── Precondiciones y candado ─────────────────────────────────────────────────

func TestRun_SinTransaccionesEsFatal(t *testing.T) {
	in := sampleInput()
	in.Ledger = in.Ledger[2:3] // solo la cuenta de activo, que se filtra
	_, err := newPipeline(1, nil, nil).Run(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrNoTransactions))
	assert.True(t, errors.Is(err, domain.ErrPrecondition))
}

func TestRun_CandadoOcupado(t *testing.T) {
	_, err := newPipeline(1, nil, busyLocker{}).Run(context.Background(), sampleInput())
	assert.ErrorIs(t, err, domain.ErrRunLocked)
}

func TestRun_LiberaElCandado(t *testing.T) {
	l := &countingLocker{}
	_, err := newPipeline(1, nil, l).Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, 1, l.acquired)
	assert.Equal(t, 1, l.released)
}

func TestRun_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newPipeline(1, nil, nil).Run(ctx, sampleInput())
	assert.ErrorIs(t, err, context.Canceled)
}
