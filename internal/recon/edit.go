package recon

import "github.com/sells-group/recon-cli/internal/model"

// Edit is an in-progress inline correction. Nothing reaches the overlay
// until Commit; Cancel discards the partial input. A finished edit ignores
// further calls.
type Edit struct {
	engine     *Engine
	documentID string
	source     model.Source
	field      model.FieldKey
	initial    string
	done       bool
}

// BeginEdit starts an inline edit of field on the src record of documentID.
func (e *Engine) BeginEdit(documentID string, src model.Source, field model.FieldKey) (*Edit, error) {
	if err := e.check(documentID, src, field); err != nil {
		return nil, err
	}
	eff := e.effective(documentID, src, field)
	initial := ""
	if !model.IsBlank(eff.Value) {
		initial = *eff.Value
	}
	return &Edit{
		engine:     e,
		documentID: documentID,
		source:     src,
		field:      field,
		initial:    initial,
	}, nil
}

// Initial returns the text the editor opens with: the current effective
// value, or empty.
func (ed *Edit) Initial() string { return ed.initial }

// Done reports whether the edit was committed or cancelled.
func (ed *Edit) Done() bool { return ed.done }

// Commit applies value as a correction and finishes the edit. It reports
// whether an override is active afterwards. Committing a finished edit does
// nothing.
func (ed *Edit) Commit(value string) (bool, error) {
	if ed.done {
		return false, nil
	}
	ed.done = true
	return ed.engine.SetCorrection(ed.documentID, ed.source, ed.field, value)
}

// Cancel abandons the edit without touching the overlay.
func (ed *Edit) Cancel() {
	ed.done = true
}
