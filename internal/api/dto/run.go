package dto

import "github.com/remiblancher/provider-conformance/internal/report"

// RunRequest starts a conformance run against a fresh registry.
type RunRequest struct {
	// Providers is the registry order. Empty means the default order.
	Providers []string `json:"providers,omitempty"`

	// Cases selects catalog cases. Empty runs them all.
	Cases []string `json:"cases,omitempty"`
}

// RunResponse wraps the report with the audit trail the run produced.
type RunResponse struct {
	Report *report.Report `json:"report"`

	// AuditEvents is the number of hash-chained audit events recorded.
	AuditEvents int `json:"audit_events"`

	// AuditHead is the hash of the last audit event.
	AuditHead string `json:"audit_head"`
}

// CaseListResponse lists the case catalog.
type CaseListResponse struct {
	Cases []CaseInfo `json:"cases"`
}

// CaseInfo describes one case.
type CaseInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
