// Package suite holds the round-trip conformance cases and the runner that
// executes them against a provider registry.
package suite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/remiblancher/provider-conformance/internal/cipher"
	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
	"github.com/remiblancher/provider-conformance/internal/sealed"
)

// ErrorKind tags why a case failed.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindNoSuchAlgorithm  ErrorKind = "no-such-algorithm"
	KindNoSuchProvider   ErrorKind = "no-such-provider"
	KindInvalidKey       ErrorKind = "invalid-key"
	KindPadding          ErrorKind = "padding"
	KindIllegalBlockSize ErrorKind = "illegal-block-size"
	KindInvalidParameter ErrorKind = "invalid-parameter"
	KindUnsupported      ErrorKind = "unsupported-operation"
	KindIllegalState     ErrorKind = "illegal-state"
	KindIntegrity        ErrorKind = "integrity"
	KindMismatch         ErrorKind = "mismatch"
	KindPanic            ErrorKind = "panic"
	KindCanceled         ErrorKind = "canceled"
	KindOther            ErrorKind = "error"
)

// kindTable is checked in order, so wrapping errors come before the errors
// they may wrap.
var kindTable = []struct {
	target error
	kind   ErrorKind
}{
	{sealed.ErrIntegrity, KindIntegrity},
	{cipher.ErrIllegalState, KindIllegalState},
	{provider.ErrNoSuchProvider, KindNoSuchProvider},
	{provider.ErrNoSuchAlgorithm, KindNoSuchAlgorithm},
	{crypto.ErrInvalidKey, KindInvalidKey},
	{crypto.ErrPadding, KindPadding},
	{crypto.ErrIllegalBlockSize, KindIllegalBlockSize},
	{crypto.ErrInvalidParameter, KindInvalidParameter},
	{crypto.ErrUnsupportedOperation, KindUnsupported},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// KindOf maps an error chain to its ErrorKind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindTable {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return KindOther
}

// Result is the outcome of one case. Failed results carry the error kind,
// the underlying error and the file:line the failure was raised at.
type Result struct {
	Name     string
	Passed   bool
	Message  string
	Kind     ErrorKind
	Err      error
	Origin   string
	Provider string
	Duration time.Duration
}

// Pass builds a successful result.
func Pass(providerName, format string, args ...any) Result {
	return Result{Passed: true, Provider: providerName, Message: fmt.Sprintf(format, args...)}
}

// Fail builds a failed result. A nil err is a mismatch between expected
// and actual values.
func Fail(err error, format string, args ...any) Result {
	kind := KindOf(err)
	if err == nil {
		kind = KindMismatch
	}
	return Result{
		Message: fmt.Sprintf(format, args...),
		Kind:    kind,
		Err:     err,
		Origin:  origin(2),
	}
}

// FailAt is Fail with the provider that was being exercised.
func FailAt(providerName string, err error, format string, args ...any) Result {
	r := Fail(err, format, args...)
	r.Provider = providerName
	r.Origin = origin(2)
	return r
}

func origin(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// ErrText returns the error text, or "".
func (r Result) ErrText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func (r Result) String() string {
	if r.Passed {
		return fmt.Sprintf("PASS %s: %s", r.Name, r.Message)
	}
	s := fmt.Sprintf("FAIL %s [%s]: %s", r.Name, r.Kind, r.Message)
	if r.Err != nil {
		s += ": " + r.Err.Error()
	}
	if r.Origin != "" {
		s += " (" + r.Origin + ")"
	}
	return s
}
