package ingest

import (
	"fmt"
	"strings"

	"github.com/sells-group/recon-cli/internal/model"
)

// DefaultDocumentIDHeader is the ledger column holding the billing document.
const DefaultDocumentIDHeader = "Billing Document"

// DefaultLedgerColumns maps common ledger export headers to field keys.
// Header matching ignores case and surrounding whitespace.
var DefaultLedgerColumns = map[string]model.FieldKey{
	"Date":              model.FieldDate,
	"Billing Date":      model.FieldDate,
	"Incoterms":         model.FieldIncoterms,
	"Quantity":          model.FieldQuantity,
	"Billed Quantity":   model.FieldQuantity,
	"Amount":            model.FieldAmount,
	"Net Value":         model.FieldAmount,
	"Currency":          model.FieldCurrency,
	"Document Currency": model.FieldCurrency,
	"Sales Unit":        model.FieldSalesUnit,
	"Vessel Name":       model.FieldVesselName,
	"Port of Loading":   model.FieldPortOfLoading,
	"Port of Discharge": model.FieldPortOfDischarge,
	"Consignee":         model.FieldConsignee,
	"Shipper":           model.FieldShipper,
}

// LedgerOptions configures how ledger rows map to fields.
type LedgerOptions struct {
	DocumentIDHeader string                    // default DefaultDocumentIDHeader
	Columns          map[string]model.FieldKey // default DefaultLedgerColumns
}

func normHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// ParseLedger turns ledger rows (header first) into ledger records. Rows
// without a document id, and repeats of an id already seen, are skipped with
// a diagnostic. Empty cells are absent values.
func ParseLedger(rows [][]string, file string, opts LedgerOptions) ([]*model.SourceRecord, []model.Diagnostic) {
	idHeader := opts.DocumentIDHeader
	if idHeader == "" {
		idHeader = DefaultDocumentIDHeader
	}
	columns := opts.Columns
	if len(columns) == 0 {
		columns = DefaultLedgerColumns
	}
	byHeader := make(map[string]model.FieldKey, len(columns))
	for h, k := range columns {
		byHeader[normHeader(h)] = k
	}

	var diags []model.Diagnostic
	diag := func(kind model.DiagnosticKind, idx int, id, reason string) {
		diags = append(diags, model.Diagnostic{
			Kind:       kind,
			Source:     model.SourceLedger,
			File:       file,
			Index:      idx,
			DocumentID: id,
			Reason:     reason,
		})
	}

	if len(rows) == 0 {
		diag(model.DiagnosticMalformedRecord, 0, "", "ledger has no header row")
		return nil, diags
	}

	type column struct {
		index int
		key   model.FieldKey
	}
	idCol := -1
	var fieldCols []column
	for i, h := range rows[0] {
		n := normHeader(h)
		if n == normHeader(idHeader) {
			idCol = i
			continue
		}
		if k, ok := byHeader[n]; ok {
			fieldCols = append(fieldCols, column{index: i, key: k})
		}
	}
	if idCol < 0 {
		diag(model.DiagnosticMalformedRecord, 0, "", fmt.Sprintf("ledger header has no %q column", idHeader))
		return nil, diags
	}

	seen := make(map[string]bool, len(rows))
	records := make([]*model.SourceRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		idx := i + 1
		if isEmptyRow(row) {
			continue
		}
		if idCol >= len(row) || strings.TrimSpace(row[idCol]) == "" {
			diag(model.DiagnosticMalformedRecord, idx, "", "row has no document id")
			continue
		}
		id := strings.TrimSpace(row[idCol])
		if seen[id] {
			diag(model.DiagnosticDuplicate, idx, id, "document id already seen; row skipped")
			continue
		}
		seen[id] = true

		rec := model.NewSourceRecord(id, model.SourceLedger)
		for _, c := range fieldCols {
			if c.index >= len(row) || row[c.index] == "" {
				continue
			}
			if _, set := rec.Fields[c.key]; set {
				continue // leftmost mapped column wins
			}
			rec.Fields[c.key] = model.ExtractionField{Value: model.StringPtr(row[c.index])}
		}
		records = append(records, rec)
	}
	return records, diags
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
