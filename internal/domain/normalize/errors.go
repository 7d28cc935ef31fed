// Package normalize lleva identificadores heterogéneos (NIT, PUC, montos, fechas, texto libre)
// a una representación canónica. Los errores son locales: el llamador marca el registro y continúa.
package normalize

import (
	"errors"
	"fmt"
)

// Kind tipo de campo declarado por el lector.
type Kind string

const (
	KindNIT      Kind = "nit"
	KindPUC      Kind = "puc"
	KindCurrency Kind = "currency"
	KindDate     Kind = "date"
	KindText     Kind = "text"
)

var (
	ErrEmpty           = errors.New("valor vacío")
	ErrUnparseableDate = errors.New("fecha no interpretable")
	ErrMalformed       = errors.New("formato inválido")
	ErrUnknownKind     = errors.New("tipo de campo desconocido")
)

// Error NormalizationError: conserva el valor crudo y el tipo de campo.
type Error struct {
	Kind Kind
	Raw  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize %s %q: %v", e.Kind, e.Raw, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, raw string, err error) *Error {
	return &Error{Kind: kind, Raw: raw, Err: err}
}
