package model

// MatchVerdict is the machine agreement status of one field across the
// sources that apply to it.
type MatchVerdict int

const (
	// VerdictNone means fewer than two sources had a value: there is no
	// basis for comparison. It is neither a match nor a mismatch.
	VerdictNone MatchVerdict = iota
	VerdictMatch
	VerdictMismatch
)

func (v MatchVerdict) String() string {
	switch v {
	case VerdictMatch:
		return "match"
	case VerdictMismatch:
		return "mismatch"
	default:
		return "none"
	}
}

// MarshalText renders the verdict as its string form in JSON and YAML.
func (v MatchVerdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Tier is the display severity of an extraction confidence.
type Tier int

const (
	// TierAbsent means no confidence was reported. Rendered as "—", never as low.
	TierAbsent Tier = iota
	TierLow
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierLow:
		return "low"
	default:
		return "—"
	}
}

// MarshalText renders the tier as its string form.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
