package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDimensionNotFound = errors.New("el id no existe o no pertenece a esta sede")
	ErrPersistence       = errors.New("error de persistencia")
	ErrConflict          = errors.New("conflicto con el estado actual")
)

// ValidationError describe un campo inválido. errors.Is(err, ErrInvalidInput) es verdadero.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// DimensionError se produce cuando una referencia numérica no resuelve dentro de la sede.
type DimensionError struct {
	Table string
	ID    int64
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("el id %d de %s no existe o no pertenece a esta sede", e.ID, e.Table)
}

func (e *DimensionError) Is(target error) bool { return target == ErrDimensionNotFound }
