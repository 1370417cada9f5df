package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
)

const invoiceJSON = `{
  "documents": [
    {
      "billing_document": "94459227",
      "date": {"value": "2024-01-10", "confidence": 0.95},
      "amount": {"value": 900, "confidence": 0.8},
      "currency": "USD",
      "incoterms": {"value": null, "confidence": 0.1},
      "salesUnit": {"value": "KG"},
      "date_coordinates": [10, 20, 30, 40],
      "evidence_coordinates": [500, 100, 560, 900],
      "notes": "ignored"
    },
    {
      "documentId": 94459228,
      "quantityCoordinates": [1, 2, 3, 4]
    }
  ]
}`

func TestDecodeExtractions_Basic(t *testing.T) {
	t.Parallel()

	recs, diags, err := DecodeExtractions(strings.NewReader(invoiceJSON), model.SourceInvoice, "invoice.json")
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, recs, 2)

	r := recs[0]
	assert.Equal(t, "94459227", r.DocumentID)
	assert.Equal(t, model.SourceInvoice, r.Source)
	assert.Equal(t, "2024-01-10", *r.Value(model.FieldDate))
	assert.InDelta(t, 0.95, *r.Confidence(model.FieldDate), 0.0001)
	assert.Equal(t, "900", *r.Value(model.FieldAmount), "numbers keep their literal text")
	assert.Equal(t, "USD", *r.Value(model.FieldCurrency))
	assert.Nil(t, r.Confidence(model.FieldCurrency))
	assert.Nil(t, r.Value(model.FieldIncoterms))
	assert.InDelta(t, 0.1, *r.Confidence(model.FieldIncoterms), 0.0001)
	assert.Equal(t, "KG", *r.Value(model.FieldSalesUnit))
	assert.Equal(t, model.Coordinates{10, 20, 30, 40}, r.Coordinates[model.FieldDate])
	require.NotNil(t, r.Evidence)
	assert.Equal(t, model.Coordinates{500, 100, 560, 900}, *r.Evidence)

	assert.Equal(t, "94459228", recs[1].DocumentID)
	assert.Equal(t, model.Coordinates{1, 2, 3, 4}, recs[1].Coordinates[model.FieldQuantity])
}

func TestDecodeExtractions_BareArray(t *testing.T) {
	t.Parallel()

	recs, diags, err := DecodeExtractions(strings.NewReader(`[{"billing_document":"1","date":"2024-01-11"}]`), model.SourceBL, "bl.json")
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, recs, 1)
	assert.Equal(t, model.SourceBL, recs[0].Source)
}

func TestDecodeExtractions_NoDocumentList(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{`{"results": []}`, `{"documents": null}`, `{"documents": {"a": 1}}`, `"text"`} {
		recs, diags, err := DecodeExtractions(strings.NewReader(payload), model.SourceInvoice, "x.json")
		require.NoError(t, err, payload)
		assert.Empty(t, recs, payload)
		require.Len(t, diags, 1, payload)
		assert.Equal(t, model.DiagnosticMalformedRecord, diags[0].Kind)
	}
}

func TestDecodeExtractions_SkipsBadEntries(t *testing.T) {
	t.Parallel()

	payload := `{"documents": [
		{"date": "2024-01-10"},
		"not an object",
		{"billing_document": "A", "date": true, "quantity": "5", "amount_coordinates": [1, 2, 3]},
		{"billing_document": "A", "date": "dup"},
		{"billing_document": "B", "date": "2024-01-12"}
	]}`
	recs, diags, err := DecodeExtractions(strings.NewReader(payload), model.SourceInvoice, "x.json")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0].DocumentID)
	assert.Nil(t, recs[0].Value(model.FieldDate))
	assert.Equal(t, "5", *recs[0].Value(model.FieldQuantity))
	assert.Empty(t, recs[0].Coordinates)
	assert.Equal(t, "B", recs[1].DocumentID)

	kinds := make([]model.DiagnosticKind, 0, len(diags))
	for _, d := range diags {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []model.DiagnosticKind{
		model.DiagnosticMalformedRecord, // no id
		model.DiagnosticMalformedRecord, // not an object
		model.DiagnosticMalformedValue,  // amount_coordinates
		model.DiagnosticMalformedValue,  // date: true
		model.DiagnosticDuplicate,
	}, kinds)
}

func TestDecodeExtractions_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, _, err := DecodeExtractions(strings.NewReader(`{"documents": [`), model.SourceInvoice, "x.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}
