package library

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrInvalidInput is matched by every *ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBookNotFound is returned by GetBook for an unknown id.
	ErrBookNotFound = errors.New("book not found")
)

// ValidationError lists the request fields that failed validation,
// keyed by field name ("title", "author", "borrower").
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// Missing reports whether field was left empty.
func (e *ValidationError) Missing(field string) bool {
	return e.Fields[field] == msgRequired
}
