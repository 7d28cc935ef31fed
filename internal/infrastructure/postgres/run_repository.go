package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
)

var (
	_ onboarding.ResultStore = (*RunRepo)(nil)
	_ onboarding.RunReader   = (*RunRepo)(nil)
)

var (
	recordColumns = []string{
		"run_id", "position", "transaction_id", "source", "row_number", "invoice_handle",
		"status", "score", "breakdown", "evidence", "rule", "reason",
		"supplier_id", "product_code", "cost_center", "transaction_value", "invoice_total",
	}
	supplierColumns = []string{"run_id", "supplier_id", "nit", "legal_name", "city", "aliases", "flags"}
	auditColumns    = []string{
		"run_id", "seq", "event_id", "at", "component", "kind", "rule", "subject", "score", "fields",
	}
)

// RunRepo persistencia de corridas: cabecera con el resumen en JSONB, registros de
// conciliación, proveedores consolidados y bitácora.
type RunRepo struct {
	q  Querier
	tx *TxRunner
}

// NewRunRepository construye el repositorio sobre el pool.
func NewRunRepository(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{q: pool, tx: NewTxRunner(pool)}
}

// SaveRun guarda la corrida completa en una sola transacción.
func (r *RunRepo) SaveRun(ctx context.Context, res *onboarding.Result) error {
	summary, err := json.Marshal(res.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return r.tx.Run(ctx, func(q Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO reconciliation_runs (id, client_id, started_at, finished_at, registry_version, summary)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			res.RunID, res.ClientID, res.StartedAt, res.FinishedAt, res.RegistryVersion, summary,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: corrida %s ya existe", domain.ErrDuplicate, res.RunID)
			}
			return fmt.Errorf("insert run: %w", err)
		}

		if _, err := q.CopyFrom(ctx, pgx.Identifier{"match_records"}, recordColumns,
			pgx.CopyFromSlice(len(res.Records), func(i int) ([]any, error) {
				return recordRow(res.RunID, i, res.Records[i])
			})); err != nil {
			return fmt.Errorf("copy match_records: %w", err)
		}

		if _, err := q.CopyFrom(ctx, pgx.Identifier{"run_suppliers"}, supplierColumns,
			pgx.CopyFromSlice(len(res.Suppliers), func(i int) ([]any, error) {
				s := res.Suppliers[i]
				return []any{res.RunID, string(s.ID), nullIfEmpty(s.NIT), s.LegalName, nullIfEmpty(s.City),
					s.Aliases, s.Flags.Strings()}, nil
			})); err != nil {
			return fmt.Errorf("copy run_suppliers: %w", err)
		}

		if _, err := q.CopyFrom(ctx, pgx.Identifier{"audit_events"}, auditColumns,
			pgx.CopyFromSlice(len(res.Audit), func(i int) ([]any, error) {
				return auditRow(res.RunID, res.Audit[i])
			})); err != nil {
			return fmt.Errorf("copy audit_events: %w", err)
		}
		return nil
	})
}

func recordRow(runID string, i int, m entity.MatchRecord) ([]any, error) {
	breakdown, err := json.Marshal(m.Breakdown)
	if err != nil {
		return nil, err
	}
	return []any{
		runID, i, nullIfEmpty(string(m.TransactionID)), nullIfEmpty(m.Source), m.Row,
		nullIfEmpty(string(m.InvoiceHandle)), string(m.Status), m.Score, breakdown, m.Evidence,
		nullIfEmpty(m.Rule), nullIfEmpty(m.Reason), nullIfEmpty(string(m.SupplierID)),
		nullIfEmpty(m.ProductCode), nullIfEmpty(m.CostCenter), m.TransactionValue, m.InvoiceTotal,
	}, nil
}

func auditRow(runID string, e audit.Event) ([]any, error) {
	var fields []byte
	if len(e.Fields) > 0 {
		b, err := json.Marshal(e.Fields)
		if err != nil {
			return nil, err
		}
		fields = b
	}
	return []any{
		runID, e.Seq, e.ID, e.At, e.Component, string(e.Kind), nullIfEmpty(e.Rule), e.Subject, e.Score, fields,
	}, nil
}

const runSelect = `SELECT id, client_id, started_at, finished_at, registry_version, summary FROM reconciliation_runs`

// GetRun devuelve la cabecera de la corrida.
func (r *RunRepo) GetRun(ctx context.Context, runID string) (*onboarding.StoredRun, error) {
	run, err := scanRun(r.q.QueryRow(ctx, runSelect+` WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: corrida %s", domain.ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns corridas del cliente, la más reciente primero.
func (r *RunRepo) ListRuns(ctx context.Context, clientID string, limit, offset int) ([]onboarding.StoredRun, error) {
	rows, err := r.q.Query(ctx, runSelect+` WHERE client_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []onboarding.StoredRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*onboarding.StoredRun, error) {
	var (
		run     onboarding.StoredRun
		summary []byte
	)
	if err := row.Scan(&run.RunID, &run.ClientID, &run.StartedAt, &run.FinishedAt, &run.RegistryVersion, &summary); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(summary, &run.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &run, nil
}

// ListRecords registros de conciliación en el orden en que se emitieron.
func (r *RunRepo) ListRecords(ctx context.Context, runID string) ([]entity.MatchRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT transaction_id, source, row_number, invoice_handle, status, score, breakdown, evidence,
			rule, reason, supplier_id, product_code, cost_center, transaction_value, invoice_total
		FROM match_records WHERE run_id = $1 ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []entity.MatchRecord
	for rows.Next() {
		var (
			m                                  entity.MatchRecord
			txID, source, handle, rule, reason *string
			supplier, product, center          *string
			status                             string
			breakdown                          []byte
			txValue, invTotal                  decimal.NullDecimal
		)
		if err := rows.Scan(&txID, &source, &m.Row, &handle, &status, &m.Score, &breakdown, &m.Evidence,
			&rule, &reason, &supplier, &product, &center, &txValue, &invTotal); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if len(breakdown) > 0 {
			if err := json.Unmarshal(breakdown, &m.Breakdown); err != nil {
				return nil, fmt.Errorf("unmarshal breakdown: %w", err)
			}
		}
		m.TransactionID = entity.TransactionID(stringOf(txID))
		m.Source = stringOf(source)
		m.InvoiceHandle = entity.InvoiceHandle(stringOf(handle))
		m.Status = entity.MatchStatus(status)
		m.Rule, m.Reason = stringOf(rule), stringOf(reason)
		m.SupplierID = entity.SupplierID(stringOf(supplier))
		m.ProductCode, m.CostCenter = stringOf(product), stringOf(center)
		m.TransactionValue, m.InvoiceTotal = txValue, invTotal
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListAudit bitácora de la corrida ordenada por secuencia.
func (r *RunRepo) ListAudit(ctx context.Context, runID string) ([]audit.Event, error) {
	rows, err := r.q.Query(ctx, `
		SELECT seq, event_id, at, component, kind, rule, subject, score, fields
		FROM audit_events WHERE run_id = $1 ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e      audit.Event
			kind   string
			rule   *string
			fields []byte
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.At, &e.Component, &kind, &rule, &e.Subject, &e.Score, &fields); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.RunID = runID
		e.Kind = audit.Kind(kind)
		e.Rule = stringOf(rule)
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &e.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal fields: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
