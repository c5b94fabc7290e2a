package audit

import (
	"fmt"
	"io"
	"sync"
)

// Writer defines the interface for audit log writers.
//
// Implementations MUST:
//   - Return an error if the write fails (audit fails = operation fails)
//   - Calculate and set the hash chain (HashPrev, Hash)
//   - Never write key material
type Writer interface {
	// Write validates the event, chains it to the previous one and
	// persists it.
	Write(event *Event) error

	// Close flushes any pending writes and closes the writer.
	Close() error

	// LastHash returns the hash of the last written event, or GenesisHash.
	LastHash() string
}

// Ensure Writer extends io.Closer for proper resource management.
var _ io.Closer = (Writer)(nil)

// NopWriter is a no-op writer that discards all events.
// Used when audit logging is disabled.
type NopWriter struct{}

var _ Writer = (*NopWriter)(nil)

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }

// MultiWriter writes to multiple audit writers.
// If any writer fails, the write fails.
type MultiWriter struct {
	writers []Writer
}

var _ Writer = (*MultiWriter)(nil)

// NewMultiWriter creates a writer that writes to all provided writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(event *Event) error {
	for _, w := range m.writers {
		if err := w.Write(event); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiWriter) Close() error {
	var lastErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (m *MultiWriter) LastHash() string {
	if len(m.writers) > 0 {
		return m.writers[0].LastHash()
	}
	return GenesisHash
}

// MemoryWriter keeps a hash-chained trail in memory. The HTTP surface uses
// one per run so the trail can be returned with the report.
type MemoryWriter struct {
	mu       sync.Mutex
	events   []Event
	lastHash string
}

var _ Writer = (*MemoryWriter)(nil)

// NewMemoryWriter creates an empty in-memory trail.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{lastHash: GenesisHash}
}

func (m *MemoryWriter) Write(event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := chain(event, m.lastHash); err != nil {
		return err
	}
	m.events = append(m.events, *event)
	m.lastHash = event.Hash
	return nil
}

func (m *MemoryWriter) Close() error { return nil }

func (m *MemoryWriter) LastHash() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHash
}

// Events returns a copy of the recorded events in write order.
func (m *MemoryWriter) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// chain validates event and sets its HashPrev and Hash.
func chain(event *Event, prevHash string) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	event.HashPrev = prevHash
	canonical, err := event.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	event.Hash = calculateHash(canonical, prevHash)
	return nil
}

// VerifyEvents checks the hash chain of an in-memory trail.
func VerifyEvents(events []Event) error {
	expectedPrev := GenesisHash
	for i := range events {
		if err := verifyEvent(&events[i], expectedPrev); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		expectedPrev = events[i].Hash
	}
	return nil
}

func verifyEvent(event *Event, expectedPrev string) error {
	if event.HashPrev != expectedPrev {
		return fmt.Errorf("hash chain broken: expected prev=%s, got prev=%s", expectedPrev, event.HashPrev)
	}
	canonical, err := event.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}
	if calculated := calculateHash(canonical, event.HashPrev); event.Hash != calculated {
		return fmt.Errorf("hash mismatch: expected=%s, got=%s", calculated, event.Hash)
	}
	return nil
}
