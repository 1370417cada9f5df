package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/recon-cli/internal/model"
)

func sp(s string) *string { return &s }

func TestMatchStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []*string
		want   model.MatchVerdict
	}{
		{"no values", nil, model.VerdictNone},
		{"all nil", []*string{nil, nil, nil}, model.VerdictNone},
		{"single value", []*string{sp("2024-01-10"), nil, nil}, model.VerdictNone},
		{"single value among blanks", []*string{sp("  "), sp("FOB"), sp("")}, model.VerdictNone},
		{"placeholders are blank", []*string{sp("-"), sp("-"), sp("2024-01-11")}, model.VerdictNone},
		{"two equal", []*string{sp("FOB"), sp("FOB"), nil}, model.VerdictMatch},
		{"three equal", []*string{sp("10"), sp("10"), sp("10")}, model.VerdictMatch},
		{"third differs", []*string{sp("2024-01-10"), sp("2024-01-10"), sp("2024-01-11")}, model.VerdictMismatch},
		{"case sensitive", []*string{sp("FOB"), sp("fob")}, model.VerdictMismatch},
		{"no trimming", []*string{sp("FOB"), sp("FOB ")}, model.VerdictMismatch},
		{"no numeric normalization", []*string{sp("1,000"), sp("1000")}, model.VerdictMismatch},
		{"blank skipped between", []*string{sp("5"), nil, sp("5")}, model.VerdictMatch},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MatchStatus(tt.values...))
		})
	}
}

func TestMatchStatus_OrderIndependent(t *testing.T) {
	t.Parallel()

	a, b, c := sp("X"), sp("Y"), sp("X")
	want := MatchStatus(a, b, c)
	assert.Equal(t, want, MatchStatus(c, a, b))
	assert.Equal(t, want, MatchStatus(b, c, a))
}

func TestMatchField_TwoWayIgnoresBL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.VerdictMatch, MatchField(model.FieldAmount, sp("900"), sp("900"), sp("1000")))
	assert.Equal(t, model.VerdictNone, MatchField(model.FieldCurrency, sp("USD"), nil, sp("USD")))
	assert.Equal(t, model.VerdictMismatch, MatchField(model.FieldQuantity, sp("5"), sp("5"), sp("6")))
}

func TestMatchField_NotCompared(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.VerdictNone, MatchField(model.FieldVesselName, sp("EVER"), sp("EVER"), sp("EVER")))
}
