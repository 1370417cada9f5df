package model

import "time"

// Correction is a reviewer override for one field of one document as read
// from one source. It shadows the extracted value without changing it.
type Correction struct {
	DocumentID string    `json:"document_id" yaml:"document_id"`
	Source     Source    `json:"source" yaml:"source"`
	Field      FieldKey  `json:"field" yaml:"field"`
	Value      string    `json:"value" yaml:"value"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// JudgmentStatus is a reviewer's classification of a whole document.
type JudgmentStatus string

const (
	JudgmentUnset          JudgmentStatus = ""
	JudgmentCompleteMatch  JudgmentStatus = "complete_match"  // all available evidence agrees
	JudgmentPartialError   JudgmentStatus = "partial_error"   // some fields disagree, not disqualifying
	JudgmentReviewRequired JudgmentStatus = "review_required" // material disagreement
	JudgmentNoEvidence     JudgmentStatus = "no_evidence"     // nothing comparable exists
)

// JudgmentStatuses lists the settable statuses in display order.
var JudgmentStatuses = []JudgmentStatus{
	JudgmentCompleteMatch,
	JudgmentPartialError,
	JudgmentReviewRequired,
	JudgmentNoEvidence,
}

// Valid reports whether s is a settable status. Unset is not settable.
func (s JudgmentStatus) Valid() bool {
	switch s {
	case JudgmentCompleteMatch, JudgmentPartialError, JudgmentReviewRequired, JudgmentNoEvidence:
		return true
	default:
		return false
	}
}

// JudgmentState is the lifecycle position of a document's judgment.
type JudgmentState string

const (
	JudgmentStateUnset     JudgmentState = "unset"
	JudgmentStatePending   JudgmentState = "pending"
	JudgmentStateConfirmed JudgmentState = "confirmed"
)

// JudgmentDisplay is the judgment a view must show for a document. Pending
// selections shadow the confirmed value and must be styled differently.
type JudgmentDisplay struct {
	Status    JudgmentStatus `json:"status"`
	Pending   bool           `json:"pending"`
	Confirmed JudgmentStatus `json:"confirmed,omitempty"`
}

// Snapshot is the persisted state of a review session. Pending selections
// are never part of a snapshot.
type Snapshot struct {
	SessionID   string                    `json:"session_id" yaml:"session_id"`
	Corrections []Correction              `json:"corrections" yaml:"corrections"`
	Judgments   map[string]JudgmentStatus `json:"judgments" yaml:"judgments"`
	SavedAt     time.Time                 `json:"saved_at" yaml:"saved_at"`
}

// SessionInfo summarises a stored session.
type SessionInfo struct {
	SessionID   string    `json:"session_id"`
	Corrections int       `json:"corrections"`
	Judgments   int       `json:"judgments"`
	SavedAt     time.Time `json:"saved_at"`
}
