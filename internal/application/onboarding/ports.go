package onboarding

import (
	"context"
	"time"

	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
)

// ResultStore persiste el resultado de una corrida (registros de conciliación y bitácora).
type ResultStore interface {
	SaveRun(ctx context.Context, res *Result) error
}

// StoredRun cabecera de una corrida persistida.
type StoredRun struct {
	RunID           string
	ClientID        string
	StartedAt       time.Time
	FinishedAt      time.Time
	RegistryVersion int
	Summary         Summary
}

// RunReader consulta corridas persistidas. GetRun devuelve domain.ErrNotFound si no existe.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (*StoredRun, error)
	ListRuns(ctx context.Context, clientID string, limit, offset int) ([]StoredRun, error)
	ListRecords(ctx context.Context, runID string) ([]entity.MatchRecord, error)
	ListAudit(ctx context.Context, runID string) ([]audit.Event, error)
}

// RunLocker evita dos corridas simultáneas para el mismo cliente.
// Acquire devuelve domain.ErrRunLocked si el candado está tomado.
type RunLocker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}
