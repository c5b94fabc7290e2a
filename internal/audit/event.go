// Package audit provides a tamper-evident audit trail for conformance runs.
//
// Audit logs are separate from technical logs. They record which providers
// were registered in which order and how every case ended, so a published
// report can be traced back to the exact registry state that produced it.
//
// Key principles:
//   - Audit failure = Operation failure
//   - Never log key material
//   - All timestamps in UTC
//   - Hash chain for integrity verification
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EventType represents the category of audit event.
type EventType string

const (
	// Registry events
	EventProviderAdded   EventType = "PROVIDER_ADDED"
	EventProviderRemoved EventType = "PROVIDER_REMOVED"

	// Run events
	EventRunStarted   EventType = "RUN_STARTED"
	EventRunCompleted EventType = "RUN_COMPLETED"
	EventCasePassed   EventType = "CASE_PASSED"
	EventCaseFailed   EventType = "CASE_FAILED"

	// Report events
	EventReportSigned EventType = "REPORT_SIGNED"
)

// Result represents the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor represents who performed the action.
type Actor struct {
	Type string `json:"type"`           // "user", "system", "service"
	ID   string `json:"id"`             // username or service identifier
	Host string `json:"host,omitempty"` // hostname where action occurred
}

// Object represents what was acted upon.
type Object struct {
	Type string `json:"type"`           // "provider", "case", "run", "report"
	Name string `json:"name,omitempty"` // provider or case name
	Path string `json:"path,omitempty"` // report file
}

// Context provides additional details about the operation.
type Context struct {
	Version   string `json:"version,omitempty"`   // provider version
	Position  *int   `json:"position,omitempty"`  // registry index after the mutation
	Algorithm string `json:"algorithm,omitempty"` // transformation exercised
	Provider  string `json:"provider,omitempty"`  // provider that served the case
	Kind      string `json:"kind,omitempty"`      // error kind of a failed case
	Reason    string `json:"reason,omitempty"`    // failure message or summary
	Duration  string `json:"duration,omitempty"`  // wall time of the case or run
}

// Event represents a single audit log entry.
type Event struct {
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context,omitempty"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"` // SHA-256 hash of previous event
	Hash      string    `json:"hash"`      // SHA-256 hash of this event
}

// NewEvent creates a new audit event with current timestamp and actor info.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows
	}
	if username == "" {
		username = "unknown"
	}

	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor: Actor{
			Type: "user",
			ID:   username,
			Host: hostname,
		},
		Result: result,
	}
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// WithActor overrides the default actor.
func (e *Event) WithActor(actor Actor) *Event {
	e.Actor = actor
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if e.Actor.Type == "" || e.Actor.ID == "" {
		return fmt.Errorf("actor type and id are required")
	}
	if e.Result == "" {
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON returns the event as JSON without its own hash, the form
// the chain hash is computed over.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type eventForHash struct {
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context,omitempty"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}

	return json.Marshal(eventForHash{
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	})
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
