package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/recon"
)

// maxDiagnostics caps how many diagnostics FormatSummary lists.
const maxDiagnostics = 20

// FormatSummary writes per-field verdict counts, judgment tallies and the
// ingestion diagnostics to out.
func FormatSummary(out io.Writer, s recon.Summary, diags []model.Diagnostic) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Session:\t%s\n", s.SessionID)
	_, _ = fmt.Fprintf(w, "Documents:\t%d\n", s.Documents)
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "FIELD\tMATCH\tMISMATCH\tNONE")
	_, _ = fmt.Fprintln(w, "-----\t-----\t--------\t----")
	for _, field := range model.ComparedFields {
		c := s.Fields[field]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", field, c.Match, c.Mismatch, c.None)
	}
	_, _ = fmt.Fprintln(w)

	for _, st := range model.JudgmentStatuses {
		_, _ = fmt.Fprintf(w, "%s:\t%d\n", st, s.Judgments[st])
	}
	_, _ = fmt.Fprintf(w, "unjudged:\t%d\n", s.Unjudged)
	if s.Pending > 0 {
		_, _ = fmt.Fprintf(w, "pending:\t%d\n", s.Pending)
	}
	if s.Corrections > 0 {
		_, _ = fmt.Fprintf(w, "corrections:\t%d\n", s.Corrections)
	}
	_ = w.Flush()

	if len(diags) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "\n%d ingestion diagnostic(s):\n", len(diags))
	for i, d := range diags {
		if i == maxDiagnostics {
			_, _ = fmt.Fprintf(out, "  ... %d more\n", len(diags)-maxDiagnostics)
			break
		}
		_, _ = fmt.Fprintf(out, "  %s\n", d.String())
	}
}

// FormatSessions writes a tabular list of stored sessions to out.
func FormatSessions(out io.Writer, sessions []model.SessionInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SESSION\tCORRECTIONS\tJUDGMENTS\tSAVED")
	_, _ = fmt.Fprintln(w, "-------\t-----------\t---------\t-----")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
			s.SessionID,
			s.Corrections,
			s.Judgments,
			s.SavedAt.Local().Format(time.DateTime),
		)
	}
	_ = w.Flush()
}

// FormatSnapshot writes a session's corrections and confirmed judgments.
func FormatSnapshot(out io.Writer, snap *model.Snapshot) {
	_, _ = fmt.Fprintf(out, "Session %s saved %s\n", snap.SessionID, snap.SavedAt.Local().Format(time.DateTime))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(snap.Corrections) > 0 {
		_, _ = fmt.Fprintln(w, "\nDOCUMENT\tSOURCE\tFIELD\tVALUE")
		for _, c := range snap.Corrections {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.DocumentID, c.Source.Letter(), c.Field, c.Value)
		}
	}
	if len(snap.Judgments) > 0 {
		_, _ = fmt.Fprintln(w, "\nDOCUMENT\tJUDGMENT")
		for _, doc := range model.SortedKeys(snap.Judgments) {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", doc, snap.Judgments[doc])
		}
	}
	_ = w.Flush()
}
