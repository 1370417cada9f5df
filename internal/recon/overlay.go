package recon

import (
	"sort"
	"time"

	"github.com/sells-group/recon-cli/internal/model"
)

// Effective is the value a view shows for one field, with provenance.
type Effective struct {
	Value       *string `json:"value"`
	IsCorrected bool    `json:"is_corrected"`
}

// Display renders the effective value for a table cell.
func (e Effective) Display() string {
	return model.Display(e.Value)
}

type correctionKey struct {
	documentID string
	field      model.FieldKey
}

// Overlay holds reviewer corrections keyed by (document, field). At most one
// correction is active per key; a new one replaces the old whichever source
// it was entered against. The source is kept as provenance only. Raw values
// are never modified.
//
// Setting a blank value (empty, whitespace, or the placeholder) clears the
// override instead of storing an empty one, so a reviewer cannot blank out a
// field through a correction.
type Overlay struct {
	corrections map[correctionKey]model.Correction
	nowFunc     func() time.Time
}

// NewOverlay returns an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		corrections: make(map[correctionKey]model.Correction),
		nowFunc:     time.Now,
	}
}

// EffectiveValue returns the correction for (documentID, field) if one is
// active, else raw unchanged.
func (o *Overlay) EffectiveValue(documentID string, field model.FieldKey, raw *string) Effective {
	if c, ok := o.corrections[correctionKey{documentID, field}]; ok {
		v := c.Value
		return Effective{Value: &v, IsCorrected: true}
	}
	return Effective{Value: raw}
}

// SetCorrection stores value, entered against src, as the override for
// (documentID, field). A blank value clears the override. It reports whether
// an override is active afterwards. Writing the same value from the same
// source again keeps the original timestamp.
func (o *Overlay) SetCorrection(documentID string, src model.Source, field model.FieldKey, value string) bool {
	key := correctionKey{documentID, field}
	if model.IsBlank(&value) {
		delete(o.corrections, key)
		return false
	}
	if prev, ok := o.corrections[key]; ok && prev.Value == value && prev.Source == src {
		return true
	}
	o.corrections[key] = model.Correction{
		DocumentID: documentID,
		Source:     src,
		Field:      field,
		Value:      value,
		CreatedAt:  o.nowFunc().UTC(),
	}
	return true
}

// ClearCorrection removes the override for (documentID, field). It reports
// whether one existed.
func (o *Overlay) ClearCorrection(documentID string, field model.FieldKey) bool {
	key := correctionKey{documentID, field}
	_, ok := o.corrections[key]
	delete(o.corrections, key)
	return ok
}

// Correction returns the active correction for (documentID, field).
func (o *Overlay) Correction(documentID string, field model.FieldKey) (model.Correction, bool) {
	c, ok := o.corrections[correctionKey{documentID, field}]
	return c, ok
}

// Corrections returns every active correction ordered by document then field.
func (o *Overlay) Corrections() []model.Correction {
	out := make([]model.Correction, 0, len(o.corrections))
	for _, c := range o.corrections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Len returns the number of active corrections.
func (o *Overlay) Len() int {
	return len(o.corrections)
}

// Load replaces every correction with cs. Blank values are dropped under the
// same policy as SetCorrection; later duplicates win.
func (o *Overlay) Load(cs []model.Correction) {
	o.corrections = make(map[correctionKey]model.Correction, len(cs))
	for _, c := range cs {
		if model.IsBlank(&c.Value) {
			continue
		}
		o.corrections[correctionKey{c.DocumentID, c.Field}] = c
	}
}
