// Package report holds the outcome of a conformance run and its encodings.
package report

import (
	"time"
)

// ProviderEntry records a provider and its registry position at run start.
type ProviderEntry struct {
	Name     string `json:"name" yaml:"name" cbor:"1,keyasint"`
	Version  string `json:"version" yaml:"version" cbor:"2,keyasint"`
	Position int    `json:"position" yaml:"position" cbor:"3,keyasint"`
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name       string `json:"name" yaml:"name" cbor:"1,keyasint"`
	Passed     bool   `json:"passed" yaml:"passed" cbor:"2,keyasint"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty" cbor:"3,keyasint,omitempty"`
	Kind       string `json:"kind,omitempty" yaml:"kind,omitempty" cbor:"4,keyasint,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty" cbor:"5,keyasint,omitempty"`
	Origin     string `json:"origin,omitempty" yaml:"origin,omitempty" cbor:"6,keyasint,omitempty"`
	Provider   string `json:"provider,omitempty" yaml:"provider,omitempty" cbor:"7,keyasint,omitempty"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms" cbor:"8,keyasint"`
}

// Summary counts case outcomes.
type Summary struct {
	Total  int `json:"total" yaml:"total" cbor:"1,keyasint"`
	Passed int `json:"passed" yaml:"passed" cbor:"2,keyasint"`
	Failed int `json:"failed" yaml:"failed" cbor:"3,keyasint"`
}

// Report is the result of a run.
type Report struct {
	Tool       string          `json:"tool" yaml:"tool" cbor:"1,keyasint"`
	Version    string          `json:"version" yaml:"version" cbor:"2,keyasint"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at" cbor:"3,keyasint"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at" cbor:"4,keyasint"`
	Providers  []ProviderEntry `json:"providers" yaml:"providers" cbor:"5,keyasint"`
	Results    []CaseResult    `json:"results" yaml:"results" cbor:"6,keyasint"`
	Summary    Summary         `json:"summary" yaml:"summary" cbor:"7,keyasint"`
}

// Tool is the name reports are stamped with.
const Tool = "provcheck"

// New starts a report for the given provider order.
func New(version string, providers []ProviderEntry, started time.Time) *Report {
	return &Report{
		Tool:      Tool,
		Version:   version,
		StartedAt: started.UTC(),
		Providers: providers,
		Results:   []CaseResult{},
	}
}

// Add appends a case result and updates the summary.
func (r *Report) Add(res CaseResult) {
	r.Results = append(r.Results, res)
	r.Summary.Total++
	if res.Passed {
		r.Summary.Passed++
	} else {
		r.Summary.Failed++
	}
}

// Finish stamps the end time.
func (r *Report) Finish(at time.Time) {
	r.FinishedAt = at.UTC()
}

// OK reports whether every case passed.
func (r *Report) OK() bool {
	return r.Summary.Failed == 0
}

// Elapsed returns the wall time of the run.
func (r *Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failures returns the failed results.
func (r *Report) Failures() []CaseResult {
	var out []CaseResult
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}
