package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errores de decisión. Cada precondición rechazada produce un error
// distinguible; el registro nunca se modifica en un camino de error.
var (
	ErrStaleDecision   = errors.New("la solicitud ya no está pendiente en esta etapa")
	ErrMissingApprover = errors.New("se requiere el nombre del aprobador")
	ErrUnknownGate     = errors.New("etapa de aprobación desconocida")
	ErrUnknownDecision = errors.New("decisión desconocida")
)

// CapacityError reports a full (site, entry date) pair at decision time.
type CapacityError struct {
	Site string
	Date time.Time
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("no quedan cupos disponibles para %s el %s", e.Site, e.Date.Format("2006-01-02"))
}

// FieldError is one rejected submission field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every rejected field of a submission. The
// solicitud is never persisted when validation fails.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "solicitud inválida: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}
