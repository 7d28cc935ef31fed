package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrUnauthorized   = errors.New("no autorizado")
	ErrForbidden      = errors.New("acceso denegado")
	ErrConflict       = errors.New("conflicto con el estado actual")
	ErrPrecondition   = errors.New("precondición de la conciliación no cumplida")
	ErrRegistryFrozen = errors.New("registro de entidades congelado")
	ErrRunLocked      = errors.New("ya existe una conciliación en curso para el cliente")
)
