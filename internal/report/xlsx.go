// Package report renders reconciliation results as a workbook or as plain
// text for the terminal.
package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/recon"
)

// SheetName is the name of the reconciliation sheet.
const SheetName = "Reconciliation"

const pendingSuffix = " (pending)"

var (
	mismatchStyle  = newFillStyle("FFFFC7CE")
	correctedStyle = newItalicStyle()
)

func newFillStyle(argb string) *xlsx.Style {
	s := xlsx.NewStyle()
	s.Fill = *xlsx.NewFill("solid", argb, argb)
	s.ApplyFill = true
	return s
}

func newItalicStyle() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font.Italic = true
	s.ApplyFont = true
	return s
}

// Header returns the column titles: the document id, then per compared
// field one column per compared source and a verdict column, then the
// displayed judgment.
func Header() []string {
	h := []string{"Billing Document"}
	for _, field := range model.ComparedFields {
		for _, src := range model.ComparedSources(field) {
			h = append(h, fmt.Sprintf("%s (%s)", field, src.Letter()))
		}
		h = append(h, fmt.Sprintf("%s verdict", field))
	}
	return append(h, "Judgment")
}

// JudgmentText renders a displayed judgment, marking pending selections.
func JudgmentText(d model.JudgmentDisplay) string {
	if d.Status == model.JudgmentUnset {
		return ""
	}
	if d.Pending {
		return string(d.Status) + pendingSuffix
	}
	return string(d.Status)
}

// BuildWorkbook lays out one row per document. Effective values are shown;
// corrected values are italic and mismatch verdicts are shaded.
func BuildWorkbook(rows []recon.Row) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "report: add sheet")
	}

	hr := sheet.AddRow()
	for _, title := range Header() {
		hr.AddCell().SetString(title)
	}

	for i := range rows {
		row := &rows[i]
		xr := sheet.AddRow()
		xr.AddCell().SetString(row.DocumentID)
		for _, field := range model.ComparedFields {
			cell := row.Cell(field)
			if cell == nil {
				for range model.ComparedSources(field) {
					xr.AddCell()
				}
				xr.AddCell()
				continue
			}
			for _, sc := range cell.Sources {
				c := xr.AddCell()
				c.SetString(sc.Effective.Display())
				if sc.Effective.IsCorrected {
					c.SetStyle(correctedStyle)
				}
			}
			vc := xr.AddCell()
			vc.SetString(cell.Verdict.String())
			if cell.Verdict == model.VerdictMismatch {
				vc.SetStyle(mismatchStyle)
			}
		}
		xr.AddCell().SetString(JudgmentText(row.Judgment))
	}
	return f, nil
}

// WriteXLSX saves the reconciliation workbook to path.
func WriteXLSX(path string, rows []recon.Row) error {
	f, err := BuildWorkbook(rows)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "report: save %s", path)
}
