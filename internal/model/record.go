package model

import "math"

// ExtractionField is one field value as produced by a source. Confidence is
// nil for ledger values and for extractions that did not report one.
type ExtractionField struct {
	Value      *string  `json:"value" yaml:"value"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// Coordinates is a bounding box [yMin, xMin, yMax, xMax] in a 0-1000 space
// relative to a PDF page.
type Coordinates [4]int

// CoordinateScale is the side length of the normalized coordinate space.
const CoordinateScale = 1000

// CoordinatesFromFloats converts a decoded JSON array into Coordinates. It
// fails when the array does not hold exactly four integral numbers.
func CoordinatesFromFloats(vals []float64) (Coordinates, bool) {
	var c Coordinates
	if len(vals) != 4 {
		return c, false
	}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return c, false
		}
		c[i] = int(v)
	}
	return c, true
}

// SourceRecord is one logical document as seen from one source.
type SourceRecord struct {
	DocumentID  string                       `json:"document_id"`
	Source      Source                       `json:"source"`
	Fields      map[FieldKey]ExtractionField `json:"fields"`
	Coordinates map[FieldKey]Coordinates     `json:"coordinates,omitempty"`
	// Evidence is a single region covering both amount and quantity, when the
	// extractor highlighted one block for the pair.
	Evidence *Coordinates `json:"evidence,omitempty"`
}

// NewSourceRecord returns an empty record ready for population.
func NewSourceRecord(documentID string, src Source) *SourceRecord {
	return &SourceRecord{
		DocumentID:  documentID,
		Source:      src,
		Fields:      make(map[FieldKey]ExtractionField),
		Coordinates: make(map[FieldKey]Coordinates),
	}
}

// Value returns the raw value of field, or nil when the record (or field) is absent.
func (r *SourceRecord) Value(field FieldKey) *string {
	if r == nil {
		return nil
	}
	return r.Fields[field].Value
}

// Confidence returns the extraction confidence of field, or nil.
func (r *SourceRecord) Confidence(field FieldKey) *float64 {
	if r == nil {
		return nil
	}
	return r.Fields[field].Confidence
}

// Dataset holds every source record loaded for one review session.
// Records are read-only once loaded.
type Dataset struct {
	Ledger      map[string]*SourceRecord `json:"ledger"`
	Invoices    map[string]*SourceRecord `json:"invoices"`
	BLs         map[string]*SourceRecord `json:"bls"`
	Diagnostics []Diagnostic             `json:"diagnostics,omitempty"`
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Ledger:   make(map[string]*SourceRecord),
		Invoices: make(map[string]*SourceRecord),
		BLs:      make(map[string]*SourceRecord),
	}
}

func (d *Dataset) bySource(src Source) map[string]*SourceRecord {
	switch src {
	case SourceLedger:
		return d.Ledger
	case SourceInvoice:
		return d.Invoices
	case SourceBL:
		return d.BLs
	default:
		return nil
	}
}

// Add stores rec under its source. A later record with the same document id
// replaces the earlier one.
func (d *Dataset) Add(rec *SourceRecord) {
	if m := d.bySource(rec.Source); m != nil {
		m[rec.DocumentID] = rec
	}
}

// Record returns the record for documentID from src, or nil.
func (d *Dataset) Record(documentID string, src Source) *SourceRecord {
	return d.bySource(src)[documentID]
}

// Has reports whether any source carries documentID.
func (d *Dataset) Has(documentID string) bool {
	for _, src := range Sources {
		if d.Record(documentID, src) != nil {
			return true
		}
	}
	return false
}

// DocumentIDs returns the sorted union of document ids across all sources.
func (d *Dataset) DocumentIDs() []string {
	seen := make(map[string]struct{}, len(d.Ledger))
	for _, src := range Sources {
		for id := range d.bySource(src) {
			seen[id] = struct{}{}
		}
	}
	return SortedKeys(seen)
}
