package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

// documentIDKeys are accepted spellings of the document id in extraction output.
var documentIDKeys = []string{"billing_document", "billingDocument", "document_id", "documentId"}

const evidenceKey = "evidence"

// DecodeExtractions reads model-extracted records for src. The payload is
// either {"documents": [...]} or a bare array. Each entry carries its id,
// per-field {"value", "confidence"} objects (or bare scalars),
// "<field>_coordinates" boxes, and an optional "evidence_coordinates" box
// shared by amount and quantity.
//
// Structural problems are diagnostics, not errors: a payload with no
// document list yields no records, an entry without an id is skipped, and a
// malformed value or box is dropped from its record. Only unreadable JSON is
// returned as an error.
func DecodeExtractions(r io.Reader, src model.Source, file string) ([]*model.SourceRecord, []model.Diagnostic, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "extraction: read %s", file)
	}
	if !json.Valid(raw) {
		return nil, nil, eris.Errorf("extraction: %s is not valid JSON", file)
	}

	d := &decoder{src: src, file: file}
	entries, ok := d.documentList(bytes.TrimSpace(raw))
	if !ok {
		return nil, d.diags, nil
	}

	seen := make(map[string]bool, len(entries))
	records := make([]*model.SourceRecord, 0, len(entries))
	for i, entry := range entries {
		rec := d.record(i, entry)
		if rec == nil {
			continue
		}
		if seen[rec.DocumentID] {
			d.diag(model.DiagnosticDuplicate, i, rec.DocumentID, "document id already seen; entry skipped")
			continue
		}
		seen[rec.DocumentID] = true
		records = append(records, rec)
	}
	return records, d.diags, nil
}

type decoder struct {
	src   model.Source
	file  string
	diags []model.Diagnostic
}

func (d *decoder) diag(kind model.DiagnosticKind, idx int, id, reason string) {
	d.diags = append(d.diags, model.Diagnostic{
		Kind:       kind,
		Source:     d.src,
		File:       d.file,
		Index:      idx,
		DocumentID: id,
		Reason:     reason,
	})
}

func (d *decoder) documentList(raw []byte) ([]json.RawMessage, bool) {
	var entries []json.RawMessage
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &entries); err != nil {
			d.diag(model.DiagnosticMalformedRecord, 0, "", "document list: "+err.Error())
			return nil, false
		}
		return entries, true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		d.diag(model.DiagnosticMalformedRecord, 0, "", "payload is neither an object nor an array")
		return nil, false
	}
	docs, ok := wrapper["documents"]
	if !ok || isNull(docs) {
		d.diag(model.DiagnosticMalformedRecord, 0, "", "payload has no documents list")
		return nil, false
	}
	if err := json.Unmarshal(docs, &entries); err != nil {
		d.diag(model.DiagnosticMalformedRecord, 0, "", "documents is not a list")
		return nil, false
	}
	return entries, true
}

func (d *decoder) record(idx int, entry json.RawMessage) *model.SourceRecord {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(entry, &obj); err != nil || obj == nil {
		d.diag(model.DiagnosticMalformedRecord, idx, "", "entry is not an object")
		return nil
	}

	id := ""
	for _, k := range documentIDKeys {
		if v, ok := obj[k]; ok {
			if s, ok := scalarString(v); ok && s != nil {
				id = strings.TrimSpace(*s)
			}
			break
		}
	}
	if id == "" {
		d.diag(model.DiagnosticMalformedRecord, idx, "", "entry has no document id")
		return nil
	}

	rec := model.NewSourceRecord(id, d.src)
	for _, key := range model.SortedKeys(obj) {
		val := obj[key]
		if name, ok := coordinateField(key); ok {
			d.coordinates(rec, idx, key, name, val)
			continue
		}
		field, ok := model.ParseFieldKey(key)
		if !ok {
			continue
		}
		f, ok := extractionField(val)
		if !ok {
			d.diag(model.DiagnosticMalformedValue, idx, id, fmt.Sprintf("field %q has an unreadable value", key))
			continue
		}
		rec.Fields[field] = f
	}
	return rec
}

func (d *decoder) coordinates(rec *model.SourceRecord, idx int, key, name string, val json.RawMessage) {
	if isNull(val) {
		return
	}
	var nums []float64
	c, ok := model.Coordinates{}, false
	if err := json.Unmarshal(val, &nums); err == nil {
		c, ok = model.CoordinatesFromFloats(nums)
	}
	if !ok {
		d.diag(model.DiagnosticMalformedValue, idx, rec.DocumentID, fmt.Sprintf("%q is not four integers", key))
		return
	}
	if name == evidenceKey {
		rec.Evidence = &c
		return
	}
	field, valid := model.ParseFieldKey(name)
	if !valid {
		return
	}
	rec.Coordinates[field] = c
}

// coordinateField splits "<field>_coordinates" or "<field>Coordinates".
func coordinateField(key string) (string, bool) {
	for _, suffix := range []string{"_coordinates", "Coordinates"} {
		if name, ok := strings.CutSuffix(key, suffix); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

func extractionField(val json.RawMessage) (model.ExtractionField, bool) {
	trimmed := bytes.TrimSpace(val)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj struct {
			Value      json.RawMessage `json:"value"`
			Confidence *float64        `json:"confidence"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return model.ExtractionField{}, false
		}
		s, ok := scalarString(obj.Value)
		if !ok {
			return model.ExtractionField{}, false
		}
		return model.ExtractionField{Value: s, Confidence: obj.Confidence}, true
	}
	s, ok := scalarString(trimmed)
	return model.ExtractionField{Value: s}, ok
}

// scalarString returns a JSON string as-is and a JSON number as its literal
// text, so "1000.50" and 1000.50 read the same. Null or missing is nil.
func scalarString(val json.RawMessage) (*string, bool) {
	trimmed := bytes.TrimSpace(val)
	if len(trimmed) == 0 || isNull(trimmed) {
		return nil, true
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, false
		}
		return &s, true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s := string(trimmed)
		return &s, true
	default:
		return nil, false
	}
}

func isNull(val json.RawMessage) bool {
	return string(bytes.TrimSpace(val)) == "null"
}
