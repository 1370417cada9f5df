package recon

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

// SourceCell is one source's view of one field.
type SourceCell struct {
	Source         model.Source `json:"source"`
	Raw            *string      `json:"raw"`
	Effective      Effective    `json:"effective"`
	Confidence     *float64     `json:"confidence,omitempty"`
	Tier           model.Tier   `json:"tier"`
	HasCoordinates bool         `json:"has_coordinates"`
}

// Cell is one field of one document across sources. Verdict is only
// meaningful when Compared is true.
type Cell struct {
	Field    model.FieldKey     `json:"field"`
	Compared bool               `json:"compared"`
	Verdict  model.MatchVerdict `json:"verdict"`
	Sources  []SourceCell       `json:"sources"`
}

// Row is the reconciliation view of one document.
type Row struct {
	DocumentID string                `json:"document_id"`
	Cells      []Cell                `json:"cells"`
	Judgment   model.JudgmentDisplay `json:"judgment"`
	State      model.JudgmentState   `json:"state"`
}

// Cell returns the cell for field, or nil.
func (r *Row) Cell(field model.FieldKey) *Cell {
	for i := range r.Cells {
		if r.Cells[i].Field == field {
			return &r.Cells[i]
		}
	}
	return nil
}

// Row builds the view of documentID. Compared fields are always present;
// detail fields appear only when some source carries a value.
func (e *Engine) Row(documentID string) (*Row, error) {
	if !e.data.Has(documentID) {
		return nil, eris.Wrapf(ErrUnknownDocument, "document %s", documentID)
	}
	return e.row(documentID), nil
}

func (e *Engine) row(documentID string) *Row {
	row := &Row{
		DocumentID: documentID,
		Judgment:   e.judgments.DisplayValue(documentID),
		State:      e.judgments.State(documentID),
	}
	for _, field := range model.Fields {
		srcs := model.ComparedSources(field)
		compared := srcs != nil
		if !compared {
			srcs = model.Sources
		}
		cell := Cell{Field: field, Compared: compared}
		present := false
		for _, src := range srcs {
			rec := e.data.Record(documentID, src)
			raw := rec.Value(field)
			conf := rec.Confidence(field)
			if !model.IsBlank(raw) {
				present = true
			}
			cell.Sources = append(cell.Sources, SourceCell{
				Source:         src,
				Raw:            raw,
				Effective:      e.overlay.EffectiveValue(documentID, field, raw),
				Confidence:     conf,
				Tier:           Classify(conf),
				HasCoordinates: e.coords.Resolve(documentID, field, src) != nil,
			})
		}
		if !compared && !present {
			continue
		}
		if compared {
			cell.Verdict = e.matchRaw(documentID, field)
		}
		row.Cells = append(row.Cells, cell)
	}
	return row
}

// Rows builds the view of every document in id order.
func (e *Engine) Rows() []Row {
	ids := e.data.DocumentIDs()
	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, *e.row(id))
	}
	return rows
}

// VerdictCounts tallies verdicts for one field.
type VerdictCounts struct {
	Match    int `json:"match"`
	Mismatch int `json:"mismatch"`
	None     int `json:"none"`
}

// Summary is a session-wide tally of machine verdicts and reviewer work.
type Summary struct {
	SessionID   string                           `json:"session_id"`
	Documents   int                              `json:"documents"`
	Fields      map[model.FieldKey]VerdictCounts `json:"fields"`
	Judgments   map[model.JudgmentStatus]int     `json:"judgments"`
	Unjudged    int                              `json:"unjudged"`
	Pending     int                              `json:"pending"`
	Corrections int                              `json:"corrections"`
	Diagnostics int                              `json:"diagnostics"`
}

// Summary tallies verdicts per compared field and confirmed judgments.
func (e *Engine) Summary() Summary {
	ids := e.data.DocumentIDs()
	s := Summary{
		SessionID:   e.sessionID,
		Documents:   len(ids),
		Fields:      make(map[model.FieldKey]VerdictCounts, len(model.ComparedFields)),
		Judgments:   make(map[model.JudgmentStatus]int, len(model.JudgmentStatuses)),
		Pending:     e.judgments.PendingCount(),
		Diagnostics: len(e.data.Diagnostics),
	}
	s.Corrections = e.overlay.Len()
	for _, id := range ids {
		for _, field := range model.ComparedFields {
			c := s.Fields[field]
			switch e.matchRaw(id, field) {
			case model.VerdictMatch:
				c.Match++
			case model.VerdictMismatch:
				c.Mismatch++
			default:
				c.None++
			}
			s.Fields[field] = c
		}
		if st := e.judgments.Confirmed(id); st != model.JudgmentUnset {
			s.Judgments[st]++
		} else {
			s.Unjudged++
		}
	}
	return s
}
