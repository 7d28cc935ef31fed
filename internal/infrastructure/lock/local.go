package lock

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain"
)

var _ onboarding.RunLocker = (*LocalLocker)(nil)

// LocalLocker candado en memoria del proceso.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker construye el candado local.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

// Acquire toma el candado sin esperar; domain.ErrRunLocked si ya está tomado.
func (l *LocalLocker) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunLocked, key)
	}
	l.held[key] = true

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
