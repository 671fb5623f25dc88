package reservation

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrConflict   = errors.New("table is already occupied or does not exist")
	ErrNotFound   = errors.New("table not found")
	ErrStore      = errors.New("table store failure")
)

// ValidationError -> input ditolak sebelum menyentuh store
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StoreError wraps a failure of the persistence collaborator itself.
// It matches both ErrStore and the underlying cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

// HTTPStatus memetakan error engine ke status HTTP
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
