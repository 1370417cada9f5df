// Package recon implements the field-level reconciliation and judgment engine:
// match verdicts across ledger, invoice and bill of lading, reviewer
// corrections layered over extracted values, confidence tiers, evidence
// coordinates, and two-phase document judgments.
package recon

import "github.com/sells-group/recon-cli/internal/model"

// MatchStatus compares field values from up to three sources. Blank values
// are dropped first; with fewer than two left the verdict is None. Otherwise
// the values must be byte-identical to match. There is no trimming, case
// folding, or unit normalization: "1,000" and "1000" are a mismatch.
func MatchStatus(values ...*string) model.MatchVerdict {
	var first string
	n := 0
	mismatch := false
	for _, v := range values {
		if model.IsBlank(v) {
			continue
		}
		if n == 0 {
			first = *v
		} else if *v != first {
			mismatch = true
		}
		n++
	}
	switch {
	case n < 2:
		return model.VerdictNone
	case mismatch:
		return model.VerdictMismatch
	default:
		return model.VerdictMatch
	}
}

// MatchField applies MatchStatus to field using only the sources that carry
// it. For amount and currency the bill of lading value is ignored.
func MatchField(field model.FieldKey, ledger, invoice, bl *string) model.MatchVerdict {
	srcs := model.ComparedSources(field)
	if srcs == nil {
		return model.VerdictNone
	}
	byPos := map[model.Source]*string{
		model.SourceLedger:  ledger,
		model.SourceInvoice: invoice,
		model.SourceBL:      bl,
	}
	vals := make([]*string, 0, len(srcs))
	for _, s := range srcs {
		vals = append(vals, byPos[s])
	}
	return MatchStatus(vals...)
}
