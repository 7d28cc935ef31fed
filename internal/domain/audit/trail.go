// Package audit implementa la bitácora inmutable de la conciliación: cada heurística de
// normalización, fusión de entidades, desglose de puntaje y transición de estado queda
// registrada con la regla que la disparó.
package audit

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind tipo de evento de auditoría.
type Kind string

const (
	KindNormalization      Kind = "normalization"
	KindRegistryCreate     Kind = "registry.create"
	KindRegistryMerge      Kind = "registry.merge"
	KindRegistryAlias      Kind = "registry.alias"
	KindAmbiguousMerge     Kind = "registry.ambiguousMerge"
	KindStructural         Kind = "registry.structuralInconsistency"
	KindCostCenterConflict Kind = "registry.costCenterConflict"
	KindRegistryFrozen     Kind = "registry.frozen"
	KindLedgerIndexed      Kind = "ledger.indexed"
	KindCandidateScore     Kind = "matcher.candidate"
	KindNoCandidates       Kind = "matcher.noCandidates"
	KindTransition         Kind = "resolver.transition"
)

// Event entrada de la bitácora. Fields lleva la evidencia en texto plano
// (los montos van como string decimal para no perder precisión).
type Event struct {
	ID        string            `json:"id"`
	Seq       int               `json:"seq"`
	RunID     string            `json:"run_id"`
	At        time.Time         `json:"at"`
	Component string            `json:"component"`
	Kind      Kind              `json:"kind"`
	Rule      string            `json:"rule,omitempty"`
	Subject   string            `json:"subject"`
	Score     *float64          `json:"score,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Recorder puerto de escritura usado por los componentes del núcleo.
type Recorder interface {
	Record(e Event)
}

// Discard descarta los eventos (útil en pruebas de componentes aislados).
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Event) {}

// Trail bitácora append-only. Es segura para uso concurrente; la lectura devuelve copias.
type Trail struct {
	mu     sync.Mutex
	runID  string
	clock  func() time.Time
	events []Event
}

// Option configura el Trail.
type Option func(*Trail)

// WithClock inyecta el reloj usado para el timestamp de procesamiento.
func WithClock(clock func() time.Time) Option {
	return func(t *Trail) { t.clock = clock }
}

// NewTrail crea la bitácora de una corrida.
func NewTrail(runID string, opts ...Option) *Trail {
	t := &Trail{runID: runID, clock: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RunID identificador de la corrida.
func (t *Trail) RunID() string { return t.runID }

// Record agrega un evento asignando secuencia, ID y timestamp.
// El ID es determinista (UUID v5 de runID+secuencia).
func (t *Trail) Record(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seq := len(t.events) + 1
	e.Seq = seq
	e.RunID = t.runID
	e.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(t.runID+"#"+strconv.Itoa(seq))).String()
	if e.At.IsZero() {
		e.At = t.clock()
	}
	t.events = append(t.events, clone(e))
}

// Len cantidad de eventos registrados.
func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Events copia de todos los eventos en orden de registro.
func (t *Trail) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	for i, e := range t.events {
		out[i] = clone(e)
	}
	return out
}

// Filter eventos de un tipo, en orden de registro.
func (t *Trail) Filter(kind Kind) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Event
	for _, e := range t.events {
		if e.Kind == kind {
			out = append(out, clone(e))
		}
	}
	return out
}

// BySubject eventos cuyo Subject coincide (transacción, factura, proveedor...).
func (t *Trail) BySubject(subject string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Event
	for _, e := range t.events {
		if e.Subject == subject {
			out = append(out, clone(e))
		}
	}
	return out
}

// clone copia el mapa de campos y el puntaje para que nadie comparta memoria con la bitácora.
func clone(e Event) Event {
	if e.Fields != nil {
		fields := make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			fields[k] = v
		}
		e.Fields = fields
	}
	if e.Score != nil {
		v := *e.Score
		e.Score = &v
	}
	return e
}

// Score helper para asignar el puntaje opcional de un evento.
func Score(v float64) *float64 { return &v }
