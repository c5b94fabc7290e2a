package provider

import (
	"errors"
	"fmt"
)

// Error is a registry or resolution failure with the provider and
// transformation it concerns. It supports errors.Is() and errors.As().
type Error struct {
	Op        string // Operation: "new", "get", "resolve"
	Provider  string // Provider name (if applicable)
	Algorithm string // Transformation or algorithm (if applicable)
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Provider != "" && e.Algorithm != "":
		return fmt.Sprintf("provider %s [%s %s]: %v", e.Op, e.Provider, e.Algorithm, e.Err)
	case e.Provider != "":
		return fmt.Sprintf("provider %s [%s]: %v", e.Op, e.Provider, e.Err)
	case e.Algorithm != "":
		return fmt.Sprintf("provider %s [%s]: %v", e.Op, e.Algorithm, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Err }

// Sentinel errors for registry and resolution.
// Use errors.Is() to check for these errors through the error chain.
var (
	// ErrNoSuchAlgorithm indicates no registered provider (or not the named
	// one) offers the requested transformation, or the transformation string
	// is malformed.
	ErrNoSuchAlgorithm = errors.New("no such algorithm")

	// ErrNoSuchProvider indicates the named provider is not registered.
	ErrNoSuchProvider = errors.New("no such provider")

	// ErrInvalidProvider indicates a provider definition failed validation.
	ErrInvalidProvider = errors.New("invalid provider")
)
