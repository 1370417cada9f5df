package model

import "fmt"

// DiagnosticKind classifies a problem found while reading upstream data.
type DiagnosticKind string

const (
	// DiagnosticMalformedRecord marks a record that was skipped because it
	// lacked required structure.
	DiagnosticMalformedRecord DiagnosticKind = "malformed_record"
	// DiagnosticMalformedValue marks a single value that was dropped while the
	// rest of its record was kept.
	DiagnosticMalformedValue DiagnosticKind = "malformed_value"
	// DiagnosticDuplicate marks a document id seen twice in one source.
	DiagnosticDuplicate DiagnosticKind = "duplicate"
)

// Diagnostic records a recoverable ingestion problem. Processing continues
// past every diagnostic.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind"`
	Source     Source         `json:"source"`
	File       string         `json:"file,omitempty"`
	Index      int            `json:"index"` // row or array index, 0-based
	DocumentID string         `json:"document_id,omitempty"`
	Reason     string         `json:"reason"`
}

func (d Diagnostic) String() string {
	loc := fmt.Sprintf("%s[%d]", d.Source, d.Index)
	if d.File != "" {
		loc = fmt.Sprintf("%s:%d", d.File, d.Index)
	}
	if d.DocumentID != "" {
		return fmt.Sprintf("%s %s (%s): %s", loc, d.Kind, d.DocumentID, d.Reason)
	}
	return fmt.Sprintf("%s %s: %s", loc, d.Kind, d.Reason)
}
