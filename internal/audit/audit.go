package audit

import (
	"fmt"
	"sync"
	"time"
)

var (
	// globalWriter is the default audit writer.
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex

	// enabled tracks whether audit logging is active.
	enabled bool
)

// Init installs w as the process-wide audit writer. A nil writer disables
// auditing.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		enabled = false
		return nil
	}

	globalWriter = w
	enabled = true
	return nil
}

// InitFile installs a file writer for path. An empty path disables auditing.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}

	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}

	return Init(w)
}

// Close closes the global audit writer.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter = NopWriter{}
	enabled = false
	return err
}

// Enabled returns whether audit logging is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Default returns the global writer.
func Default() Writer {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalWriter
}

// Log writes an audit event to the global writer.
func Log(event *Event) error {
	return Default().Write(event)
}

// MustLog writes an audit event and returns an error suitable for
// failing the parent operation if audit logging fails.
//
// Usage:
//
//	if err := audit.MustLog(event); err != nil {
//	    return err // Operation fails if audit fails
//	}
func MustLog(event *Event) error {
	if err := Log(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// writeTo writes to w, or to the global writer when w is nil.
func writeTo(w Writer, event *Event) error {
	if w == nil {
		return MustLog(event)
	}
	if err := w.Write(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

func resultOf(success bool) Result {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}

// LogProviderAdded records a provider landing at position in a registry.
func LogProviderAdded(w Writer, name, version string, position int) error {
	event := NewEvent(EventProviderAdded, ResultSuccess).
		WithObject(Object{Type: "provider", Name: name}).
		WithContext(Context{Version: version, Position: &position})
	return writeTo(w, event)
}

// LogProviderRemoved records a provider leaving a registry.
func LogProviderRemoved(w Writer, name string) error {
	event := NewEvent(EventProviderRemoved, ResultSuccess).
		WithObject(Object{Type: "provider", Name: name})
	return writeTo(w, event)
}

// LogRunStarted records the provider order a run starts with.
func LogRunStarted(w Writer, providers []string, cases int) error {
	event := NewEvent(EventRunStarted, ResultSuccess).
		WithObject(Object{Type: "run"}).
		WithContext(Context{Reason: fmt.Sprintf("providers=%v cases=%d", providers, cases)})
	return writeTo(w, event)
}

// LogRunCompleted records a run summary.
func LogRunCompleted(w Writer, passed, failed int, elapsed time.Duration) error {
	event := NewEvent(EventRunCompleted, resultOf(failed == 0)).
		WithObject(Object{Type: "run"}).
		WithContext(Context{
			Reason:   fmt.Sprintf("%d passed, %d failed", passed, failed),
			Duration: elapsed.String(),
		})
	return writeTo(w, event)
}

// LogCase records the outcome of one case.
func LogCase(w Writer, name, provider, kind, message string, success bool, elapsed time.Duration) error {
	eventType := EventCasePassed
	if !success {
		eventType = EventCaseFailed
	}
	event := NewEvent(eventType, resultOf(success)).
		WithObject(Object{Type: "case", Name: name}).
		WithContext(Context{
			Provider: provider,
			Kind:     kind,
			Reason:   message,
			Duration: elapsed.String(),
		})
	return writeTo(w, event)
}

// LogReportSigned records a signed report written to path.
func LogReportSigned(w Writer, path, algorithm string) error {
	event := NewEvent(EventReportSigned, ResultSuccess).
		WithObject(Object{Type: "report", Path: path}).
		WithContext(Context{Algorithm: algorithm})
	return writeTo(w, event)
}
