package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJudgmentStatusValid(t *testing.T) {
	t.Parallel()
	for _, s := range JudgmentStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, JudgmentUnset.Valid())
	assert.False(t, JudgmentStatus("approved").Valid())
}

func TestDiagnosticString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		d    Diagnostic
		want string
	}{
		{
			name: "with file and document",
			d:    Diagnostic{Kind: DiagnosticDuplicate, Source: SourceLedger, File: "ledger.csv", Index: 4, DocumentID: "94459227", Reason: "already seen"},
			want: "ledger.csv:4 duplicate (94459227): already seen",
		},
		{
			name: "without file",
			d:    Diagnostic{Kind: DiagnosticMalformedRecord, Source: SourceBL, Index: 2, Reason: "missing billing_document"},
			want: "bl[2] malformed_record: missing billing_document",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.d.String())
		})
	}
}
