package recon

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

// ErrInvalidJudgment is returned when a selection is not a settable status.
var ErrInvalidJudgment = eris.New("recon: invalid judgment status")

// Judgments tracks per-document two-phase judgments. A selection first
// becomes pending; Confirm commits it. Nothing is ever inferred from match
// verdicts: every transition is a reviewer action.
//
//	unset --select--> pending --confirm--> confirmed
//	pending --clear--> unset (or back to the confirmed value)
//	confirmed --select--> pending
type Judgments struct {
	confirmed map[string]model.JudgmentStatus
	pending   map[string]model.JudgmentStatus
}

// NewJudgments returns an empty judgment machine.
func NewJudgments() *Judgments {
	return &Judgments{
		confirmed: make(map[string]model.JudgmentStatus),
		pending:   make(map[string]model.JudgmentStatus),
	}
}

// SelectPending sets a tentative judgment for documentID. The confirmed
// judgment is untouched; repeated calls overwrite the pending value.
func (j *Judgments) SelectPending(documentID string, status model.JudgmentStatus) error {
	if !status.Valid() {
		return eris.Wrapf(ErrInvalidJudgment, "status %q", status)
	}
	j.pending[documentID] = status
	return nil
}

// Confirm commits the pending judgment for documentID and clears it. With
// nothing pending it is a no-op. It reports whether a judgment was committed.
func (j *Judgments) Confirm(documentID string) bool {
	p, ok := j.pending[documentID]
	if !ok {
		return false
	}
	j.confirmed[documentID] = p
	delete(j.pending, documentID)
	return true
}

// ClearPending drops the tentative judgment for documentID. It reports
// whether one existed.
func (j *Judgments) ClearPending(documentID string) bool {
	_, ok := j.pending[documentID]
	delete(j.pending, documentID)
	return ok
}

// State returns the lifecycle position of documentID's judgment.
func (j *Judgments) State(documentID string) model.JudgmentState {
	if _, ok := j.pending[documentID]; ok {
		return model.JudgmentStatePending
	}
	if _, ok := j.confirmed[documentID]; ok {
		return model.JudgmentStateConfirmed
	}
	return model.JudgmentStateUnset
}

// DisplayValue returns the pending value if present, else the confirmed
// value, else unset.
func (j *Judgments) DisplayValue(documentID string) model.JudgmentDisplay {
	confirmed := j.confirmed[documentID]
	if p, ok := j.pending[documentID]; ok {
		return model.JudgmentDisplay{Status: p, Pending: true, Confirmed: confirmed}
	}
	return model.JudgmentDisplay{Status: confirmed, Confirmed: confirmed}
}

// Confirmed returns the committed judgment for documentID.
func (j *Judgments) Confirmed(documentID string) model.JudgmentStatus {
	return j.confirmed[documentID]
}

// PendingCount returns how many documents have an unconfirmed selection.
func (j *Judgments) PendingCount() int {
	return len(j.pending)
}

// ConfirmedAll returns a copy of every committed judgment.
func (j *Judgments) ConfirmedAll() map[string]model.JudgmentStatus {
	out := make(map[string]model.JudgmentStatus, len(j.confirmed))
	for id, s := range j.confirmed {
		out[id] = s
	}
	return out
}

// Restore replaces committed judgments with confirmed and drops every
// pending selection. Invalid statuses are skipped.
func (j *Judgments) Restore(confirmed map[string]model.JudgmentStatus) {
	j.confirmed = make(map[string]model.JudgmentStatus, len(confirmed))
	j.pending = make(map[string]model.JudgmentStatus)
	for id, s := range confirmed {
		if s.Valid() {
			j.confirmed[id] = s
		}
	}
}
