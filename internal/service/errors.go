package service

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrIDRequired        = errors.New("id is required")
	ErrNotFound          = errors.New("document not found")
	ErrForbidden         = errors.New("not allowed to modify this document")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidAttachment = errors.New("invalid attachment")
	ErrStorageRead       = errors.New("storage read failed")
	ErrStorageWrite      = errors.New("storage write failed")
)

// ValidationError lists per-field problems of a rejected submission. It matches
// ErrValidation, and its cause when one is set, under errors.Is.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

func newValidationError(fields map[string]string, cause error) *ValidationError {
	return &ValidationError{Fields: fields, cause: cause}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrValidation, e.cause}
	}
	return []error{ErrValidation}
}

// notFound translates a missing row into ErrNotFound and wraps anything else.
func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
