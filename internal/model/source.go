package model

import (
	"sort"
	"strings"
)

// Source identifies which document a field value was read from.
type Source string

const (
	SourceLedger  Source = "ledger"  // A: internal accounting entry
	SourceInvoice Source = "invoice" // B: commercial invoice
	SourceBL      Source = "bl"      // C: bill of lading
)

// Sources lists every source in comparison order (A, B, C).
var Sources = []Source{SourceLedger, SourceInvoice, SourceBL}

// Letter returns the short column label used in reports.
func (s Source) Letter() string {
	switch s {
	case SourceLedger:
		return "A"
	case SourceInvoice:
		return "B"
	case SourceBL:
		return "C"
	default:
		return "?"
	}
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	return s == SourceLedger || s == SourceInvoice || s == SourceBL
}

// FieldKey names a comparable or detail field on a shipment document.
type FieldKey string

const (
	FieldDate      FieldKey = "date"
	FieldIncoterms FieldKey = "incoterms"
	FieldQuantity  FieldKey = "quantity"
	FieldAmount    FieldKey = "amount"
	FieldCurrency  FieldKey = "currency"
	FieldSalesUnit FieldKey = "sales_unit"

	// Detailed-mode fields. Displayed but never compared.
	FieldVesselName      FieldKey = "vessel_name"
	FieldPortOfLoading   FieldKey = "port_of_loading"
	FieldPortOfDischarge FieldKey = "port_of_discharge"
	FieldConsignee       FieldKey = "consignee"
	FieldShipper         FieldKey = "shipper"
)

// Fields lists every known field key.
var Fields = []FieldKey{
	FieldDate, FieldIncoterms, FieldQuantity, FieldAmount, FieldCurrency, FieldSalesUnit,
	FieldVesselName, FieldPortOfLoading, FieldPortOfDischarge, FieldConsignee, FieldShipper,
}

// ComparedFields lists the fields that get a match verdict, in display order.
var ComparedFields = []FieldKey{FieldDate, FieldIncoterms, FieldQuantity, FieldAmount, FieldCurrency}

var (
	threeWay = []Source{SourceLedger, SourceInvoice, SourceBL}
	twoWay   = []Source{SourceLedger, SourceInvoice}
)

// ComparedSources returns the sources whose values are compared for field.
// The bill of lading has no amount or currency, so those compare A/B only.
// Returns nil for fields that are not compared.
func ComparedSources(field FieldKey) []Source {
	switch field {
	case FieldDate, FieldIncoterms, FieldQuantity:
		return threeWay
	case FieldAmount, FieldCurrency:
		return twoWay
	default:
		return nil
	}
}

var knownFields = func() map[FieldKey]bool {
	m := make(map[FieldKey]bool, len(Fields))
	for _, f := range Fields {
		m[f] = true
	}
	return m
}()

// Valid reports whether f is a known field key.
func (f FieldKey) Valid() bool {
	return knownFields[f]
}

// ParseFieldKey accepts a field key in snake_case or camelCase
// ("salesUnit", "vesselName") and returns the canonical key.
func ParseFieldKey(s string) (FieldKey, bool) {
	k := FieldKey(toSnake(strings.TrimSpace(s)))
	return k, k.Valid()
}

func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Placeholder is how a missing value is rendered. Upstream exports sometimes
// carry it literally, so it counts as blank.
const Placeholder = "-"

// IsBlank reports whether v carries no comparable value: nil, whitespace
// only, or the rendered placeholder.
func IsBlank(v *string) bool {
	if v == nil {
		return true
	}
	t := strings.TrimSpace(*v)
	return t == "" || t == Placeholder
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Display renders v for a table cell.
func Display(v *string) string {
	if IsBlank(v) {
		return Placeholder
	}
	return *v
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
