package recon

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
)

// Engine errors returned to the reviewer action surface.
var (
	ErrUnknownDocument = eris.New("recon: unknown document")
	ErrUnknownField    = eris.New("recon: unknown field")
	ErrUnknownSource   = eris.New("recon: unknown source")
)

// Engine is the reconciliation state of one review session. Source data is
// read-only; corrections and judgments live in memory until handed to a
// store. An Engine is not safe for concurrent use.
type Engine struct {
	sessionID string
	data      *model.Dataset
	overlay   *Overlay
	judgments *Judgments
	coords    *CoordinateResolver
	nowFunc   func() time.Time
}

// New returns an engine over data. An empty sessionID gets a fresh one.
func New(data *model.Dataset, sessionID string) *Engine {
	if data == nil {
		data = model.NewDataset()
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	return &Engine{
		sessionID: sessionID,
		data:      data,
		overlay:   NewOverlay(),
		judgments: NewJudgments(),
		coords:    NewCoordinateResolver(data),
		nowFunc:   time.Now,
	}
}

// SessionID returns the identifier snapshots are saved under.
func (e *Engine) SessionID() string { return e.sessionID }

// Dataset returns the source data the engine reconciles.
func (e *Engine) Dataset() *model.Dataset { return e.data }

// DocumentIDs returns every document id in the session, sorted.
func (e *Engine) DocumentIDs() []string { return e.data.DocumentIDs() }

func (e *Engine) check(documentID string, src model.Source, field model.FieldKey) error {
	if err := e.checkField(documentID, field); err != nil {
		return err
	}
	if !src.Valid() {
		return eris.Wrapf(ErrUnknownSource, "source %q", src)
	}
	return nil
}

func (e *Engine) checkField(documentID string, field model.FieldKey) error {
	if !e.data.Has(documentID) {
		return eris.Wrapf(ErrUnknownDocument, "document %s", documentID)
	}
	if !field.Valid() {
		return eris.Wrapf(ErrUnknownField, "field %q", field)
	}
	return nil
}

// MatchStatus returns the machine verdict for field on documentID. It is
// computed from raw values: corrections are a review overlay and do not
// change machine agreement.
func (e *Engine) MatchStatus(documentID string, field model.FieldKey) (model.MatchVerdict, error) {
	if err := e.check(documentID, model.SourceLedger, field); err != nil {
		return model.VerdictNone, err
	}
	return e.matchRaw(documentID, field), nil
}

func (e *Engine) matchRaw(documentID string, field model.FieldKey) model.MatchVerdict {
	return MatchField(field,
		e.data.Record(documentID, model.SourceLedger).Value(field),
		e.data.Record(documentID, model.SourceInvoice).Value(field),
		e.data.Record(documentID, model.SourceBL).Value(field),
	)
}

// EffectiveValue returns the value shown for field of documentID in the src
// column: the reviewer's correction for (documentID, field) if any, else the
// raw src value.
func (e *Engine) EffectiveValue(documentID string, src model.Source, field model.FieldKey) (Effective, error) {
	if err := e.check(documentID, src, field); err != nil {
		return Effective{}, err
	}
	return e.effective(documentID, src, field), nil
}

func (e *Engine) effective(documentID string, src model.Source, field model.FieldKey) Effective {
	raw := e.data.Record(documentID, src).Value(field)
	return e.overlay.EffectiveValue(documentID, field, raw)
}

// SetCorrection overrides field on documentID, recording src as the column
// the reviewer corrected. One correction is active per (documentID, field);
// the last write wins. A blank value clears the override. It reports whether
// an override is active afterwards.
func (e *Engine) SetCorrection(documentID string, src model.Source, field model.FieldKey, value string) (bool, error) {
	if err := e.check(documentID, src, field); err != nil {
		return false, err
	}
	active := e.overlay.SetCorrection(documentID, src, field, value)
	zap.L().Debug("recon: correction set",
		zap.String("session_id", e.sessionID),
		zap.String("document_id", documentID),
		zap.String("source", string(src)),
		zap.String("field", string(field)),
		zap.Bool("active", active),
	)
	return active, nil
}

// ClearCorrection removes the override of field on documentID. It reports
// whether one existed; clearing nothing is not an error.
func (e *Engine) ClearCorrection(documentID string, field model.FieldKey) (bool, error) {
	if err := e.checkField(documentID, field); err != nil {
		return false, err
	}
	removed := e.overlay.ClearCorrection(documentID, field)
	zap.L().Debug("recon: correction cleared",
		zap.String("session_id", e.sessionID),
		zap.String("document_id", documentID),
		zap.String("field", string(field)),
		zap.Bool("removed", removed),
	)
	return removed, nil
}

// ResolveCoordinates returns the evidence region for field on the src record
// of documentID, or nil when none is recorded.
func (e *Engine) ResolveCoordinates(documentID string, field model.FieldKey, src model.Source) (*model.Coordinates, error) {
	if err := e.check(documentID, src, field); err != nil {
		return nil, err
	}
	return e.coords.Resolve(documentID, field, src), nil
}

// SelectPending sets a tentative judgment for documentID.
func (e *Engine) SelectPending(documentID string, status model.JudgmentStatus) error {
	if !e.data.Has(documentID) {
		return eris.Wrapf(ErrUnknownDocument, "document %s", documentID)
	}
	if err := e.judgments.SelectPending(documentID, status); err != nil {
		return err
	}
	zap.L().Debug("recon: judgment selected",
		zap.String("session_id", e.sessionID),
		zap.String("document_id", documentID),
		zap.String("status", string(status)),
	)
	return nil
}

// Confirm commits the pending judgment for documentID. With nothing pending,
// or for an unknown document, it does nothing and returns false.
func (e *Engine) Confirm(documentID string) bool {
	ok := e.judgments.Confirm(documentID)
	if ok {
		zap.L().Debug("recon: judgment confirmed",
			zap.String("session_id", e.sessionID),
			zap.String("document_id", documentID),
			zap.String("status", string(e.judgments.Confirmed(documentID))),
		)
	}
	return ok
}

// ClearPending discards the tentative judgment for documentID.
func (e *Engine) ClearPending(documentID string) bool {
	return e.judgments.ClearPending(documentID)
}

// Judgment returns what a view should show for documentID's judgment.
func (e *Engine) Judgment(documentID string) model.JudgmentDisplay {
	return e.judgments.DisplayValue(documentID)
}

// JudgmentState returns the lifecycle position of documentID's judgment.
func (e *Engine) JudgmentState(documentID string) model.JudgmentState {
	return e.judgments.State(documentID)
}

// Snapshot captures corrections and confirmed judgments for persistence.
// Pending selections are left out.
func (e *Engine) Snapshot() *model.Snapshot {
	return &model.Snapshot{
		SessionID:   e.sessionID,
		Corrections: e.overlay.Corrections(),
		Judgments:   e.judgments.ConfirmedAll(),
		SavedAt:     e.nowFunc().UTC(),
	}
}

// Restore replaces corrections and judgments with those in snap and adopts
// its session id. Pending selections are dropped. Corrections without a
// document id, or naming an unknown field or source, are skipped; one without
// a source is attributed to the invoice. When several share a (document,
// field) the last one wins.
func (e *Engine) Restore(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	if snap.SessionID != "" {
		e.sessionID = snap.SessionID
	}
	restored := make([]model.Correction, 0, len(snap.Corrections))
	var malformed, orphaned int
	for _, c := range snap.Corrections {
		if c.Source == "" {
			c.Source = model.SourceInvoice
		}
		if c.DocumentID == "" || !c.Field.Valid() || !c.Source.Valid() {
			malformed++
			continue
		}
		if !e.data.Has(c.DocumentID) {
			orphaned++
		}
		restored = append(restored, c)
	}
	e.overlay.Load(restored)
	e.judgments.Restore(snap.Judgments)
	if malformed > 0 {
		zap.L().Warn("recon: skipped malformed restored corrections",
			zap.String("session_id", e.sessionID),
			zap.Int("count", malformed),
		)
	}
	if orphaned > 0 {
		zap.L().Warn("recon: restored corrections without source data",
			zap.String("session_id", e.sessionID),
			zap.Int("count", orphaned),
		)
	}
}
