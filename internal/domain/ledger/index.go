// Package ledger construye los índices de solo lectura sobre las transacciones del libro
// auxiliar de proveedores: por proveedor, por monto (cubetas de un peso), por fecha y por PUC.
// El índice se arma una vez por corrida y nunca se actualiza después de Build.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
)

// ErrNoTransactions el libro auxiliar no trajo transacciones: la corrida no puede continuar.
var ErrNoTransactions = fmt.Errorf("%w: el libro auxiliar no tiene transacciones", domain.ErrPrecondition)

// Index índices sobre las transacciones. Seguro para lectura concurrente; las consultas
// devuelven copias ordenadas por fecha y luego por ID.
type Index struct {
	txs        []entity.LedgerTransaction // orden de entrada
	byID       map[entity.TransactionID]int
	bySupplier map[entity.SupplierID][]int
	byPUC      map[string][]int
	buckets    map[int64][]int
	bucketKeys []int64
	byDate     []int // transacciones con fecha, ordenadas
}

// Build construye los índices. Cero transacciones devuelve ErrNoTransactions; IDs repetidos
// devuelven domain.ErrDuplicate.
func Build(txs []entity.LedgerTransaction, rec audit.Recorder) (*Index, error) {
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}
	if rec == nil {
		rec = audit.Discard
	}
	idx := &Index{
		txs:        make([]entity.LedgerTransaction, len(txs)),
		byID:       make(map[entity.TransactionID]int, len(txs)),
		bySupplier: make(map[entity.SupplierID][]int),
		byPUC:      make(map[string][]int),
		buckets:    make(map[int64][]int),
	}
	for i, tx := range txs {
		if _, dup := idx.byID[tx.ID]; dup {
			return nil, fmt.Errorf("transacción %s: %w", tx.ID, domain.ErrDuplicate)
		}
		tx.Flags = append(entity.Flags(nil), tx.Flags...)
		idx.txs[i] = tx
		idx.byID[tx.ID] = i
		if sup := SupplierOf(tx); sup != "" {
			idx.bySupplier[sup] = append(idx.bySupplier[sup], i)
		}
		if tx.PUC != "" {
			idx.byPUC[tx.PUC] = append(idx.byPUC[tx.PUC], i)
		}
		b := Bucket(tx.Value)
		idx.buckets[b] = append(idx.buckets[b], i)
		if !tx.Date.IsZero() {
			idx.byDate = append(idx.byDate, i)
		}
	}

	for _, list := range idx.bySupplier {
		idx.sortByDate(list)
	}
	for _, list := range idx.byPUC {
		idx.sortByDate(list)
	}
	for k, list := range idx.buckets {
		idx.sortByDate(list)
		idx.bucketKeys = append(idx.bucketKeys, k)
	}
	sort.Slice(idx.bucketKeys, func(i, j int) bool { return idx.bucketKeys[i] < idx.bucketKeys[j] })
	idx.sortByDate(idx.byDate)

	rec.Record(audit.Event{
		Component: "ledger",
		Kind:      audit.KindLedgerIndexed,
		Subject:   "ledger",
		Fields: map[string]string{
			"transactions": fmt.Sprint(len(idx.txs)),
			"suppliers":    fmt.Sprint(len(idx.bySupplier)),
			"buckets":      fmt.Sprint(len(idx.bucketKeys)),
			"undated":      fmt.Sprint(len(idx.txs) - len(idx.byDate)),
		},
	})
	return idx, nil
}

// SupplierOf proveedor bajo el que se indexa la transacción: el resuelto en el registro o,
// si no hay, la base del NIT de la fila.
func SupplierOf(tx entity.LedgerTransaction) entity.SupplierID {
	if tx.SupplierID != "" {
		return tx.SupplierID
	}
	return entity.SupplierID(tx.NIT)
}

// Bucket cubeta de monto: valor absoluto redondeado al peso más cercano.
func Bucket(v decimal.Decimal) int64 {
	return v.Abs().Round(0).IntPart()
}

// sortByDate ordena por fecha (sin fecha al final) y luego por ID.
func (idx *Index) sortByDate(list []int) {
	sort.SliceStable(list, func(a, b int) bool {
		ta, tb := idx.txs[list[a]], idx.txs[list[b]]
		za, zb := ta.Date.IsZero(), tb.Date.IsZero()
		if za != zb {
			return zb
		}
		if !ta.Date.Equal(tb.Date) {
			return ta.Date.Before(tb.Date)
		}
		return ta.ID < tb.ID
	})
}

func (idx *Index) collect(list []int) []entity.LedgerTransaction {
	out := make([]entity.LedgerTransaction, len(list))
	for i, pos := range list {
		out[i] = idx.copyAt(pos)
	}
	return out
}

func (idx *Index) copyAt(pos int) entity.LedgerTransaction {
	tx := idx.txs[pos]
	tx.Flags = append(entity.Flags(nil), tx.Flags...)
	return tx
}

// Len cantidad de transacciones indexadas.
func (idx *Index) Len() int { return len(idx.txs) }

// Get transacción por ID.
func (idx *Index) Get(id entity.TransactionID) (entity.LedgerTransaction, bool) {
	pos, ok := idx.byID[id]
	if !ok {
		return entity.LedgerTransaction{}, false
	}
	return idx.copyAt(pos), true
}

// All todas las transacciones en el orden de entrada.
func (idx *Index) All() []entity.LedgerTransaction {
	out := make([]entity.LedgerTransaction, len(idx.txs))
	for i := range idx.txs {
		out[i] = idx.copyAt(i)
	}
	return out
}

// BySupplier transacciones del proveedor, ordenadas por fecha. Incluye las filas sin NIT
// cuya razón social el registro resolvió a ese proveedor.
func (idx *Index) BySupplier(id entity.SupplierID) []entity.LedgerTransaction {
	return idx.collect(idx.bySupplier[id])
}

// ByPUC transacciones cuyo PUC empieza por prefix, ordenadas por fecha.
func (idx *Index) ByPUC(prefix string) []entity.LedgerTransaction {
	var list []int
	for code, l := range idx.byPUC {
		if strings.HasPrefix(code, prefix) {
			list = append(list, l...)
		}
	}
	idx.sortByDate(list)
	return idx.collect(list)
}

// ByAmountRange transacciones cuyo valor absoluto está en [low, high], ordenadas por fecha.
func (idx *Index) ByAmountRange(low, high decimal.Decimal) []entity.LedgerTransaction {
	if low.GreaterThan(high) {
		low, high = high, low
	}
	lo := low.Floor().IntPart()
	hi := high.Ceil().IntPart()
	start := sort.Search(len(idx.bucketKeys), func(i int) bool { return idx.bucketKeys[i] >= lo })
	var list []int
	for i := start; i < len(idx.bucketKeys) && idx.bucketKeys[i] <= hi; i++ {
		for _, pos := range idx.buckets[idx.bucketKeys[i]] {
			abs := idx.txs[pos].Value.Abs()
			if abs.LessThan(low) || abs.GreaterThan(high) {
				continue
			}
			list = append(list, pos)
		}
	}
	idx.sortByDate(list)
	return idx.collect(list)
}

// ByDateRange transacciones con fecha en [from, to] (inclusive), ordenadas por fecha.
func (idx *Index) ByDateRange(from, to time.Time) []entity.LedgerTransaction {
	if to.Before(from) {
		from, to = to, from
	}
	start := sort.Search(len(idx.byDate), func(i int) bool {
		return !idx.txs[idx.byDate[i]].Date.Before(from)
	})
	end := sort.Search(len(idx.byDate), func(i int) bool {
		return idx.txs[idx.byDate[i]].Date.After(to)
	})
	if start >= end {
		return nil
	}
	return idx.collect(idx.byDate[start:end])
}
