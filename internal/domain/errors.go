package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrProvider matches every failure of an outbound provider call
	ErrProvider = errors.New("provider error")
	// ErrValidation matches every malformed session or message shape
	ErrValidation = errors.New("validation error")
)

// ProviderError reports a failed call to an embedding, search, completion or storage provider
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// ValidationError reports a malformed request or stored message
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DimensionMismatchError reports a vector whose length disagrees with the index
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	if e.Expected == 0 {
		return fmt.Sprintf("embedding dimension mismatch (got %d)", e.Got)
	}
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Is reports provider-level classification; the index does not self-validate dimensions.
func (e *DimensionMismatchError) Is(target error) bool { return target == ErrProvider }

func fieldIndex(field string, i int) string {
	return field + "[" + strconv.Itoa(i) + "]"
}
