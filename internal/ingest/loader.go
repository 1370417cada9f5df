package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recon-cli/internal/model"
)

// Paths names the input file for each source. Empty paths are skipped.
type Paths struct {
	Ledger  string // .csv or .xlsx
	Invoice string // extraction JSON
	BL      string // extraction JSON
}

// Options configures ledger parsing.
type Options struct {
	Ledger LedgerOptions
	CSV    CSVOptions
	XLSX   XLSXOptions
}

type loaded struct {
	records []*model.SourceRecord
	diags   []model.Diagnostic
}

// Load reads the three sources concurrently into one dataset. A file that
// cannot be opened or parsed at all fails the load; per-record problems are
// collected as dataset diagnostics.
func Load(ctx context.Context, paths Paths, opts Options) (*model.Dataset, error) {
	var results [3]loaded

	g, gctx := errgroup.WithContext(ctx)
	if paths.Ledger != "" {
		g.Go(func() error {
			recs, diags, err := LoadLedger(gctx, paths.Ledger, opts)
			results[0] = loaded{recs, diags}
			return err
		})
	}
	for i, job := range []struct {
		path string
		src  model.Source
	}{
		{paths.Invoice, model.SourceInvoice},
		{paths.BL, model.SourceBL},
	} {
		if job.path == "" {
			continue
		}
		i, job := i, job
		g.Go(func() error {
			recs, diags, err := LoadExtractions(job.path, job.src)
			results[i+1] = loaded{recs, diags}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "ingest: load sources")
	}

	ds := model.NewDataset()
	for _, res := range results {
		for _, rec := range res.records {
			ds.Add(rec)
		}
		ds.Diagnostics = append(ds.Diagnostics, res.diags...)
	}
	for _, d := range ds.Diagnostics {
		zap.L().Warn("ingest: skipped malformed input",
			zap.String("kind", string(d.Kind)),
			zap.String("source", string(d.Source)),
			zap.String("file", d.File),
			zap.Int("index", d.Index),
			zap.String("document_id", d.DocumentID),
			zap.String("reason", d.Reason),
		)
	}
	zap.L().Info("ingest: sources loaded",
		zap.Int("ledger", len(ds.Ledger)),
		zap.Int("invoice", len(ds.Invoices)),
		zap.Int("bl", len(ds.BLs)),
		zap.Int("diagnostics", len(ds.Diagnostics)),
	)
	return ds, nil
}

// LoadLedger reads a ledger export, choosing the reader by file extension.
func LoadLedger(ctx context.Context, path string, opts Options) ([]*model.SourceRecord, []model.Diagnostic, error) {
	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: open ledger %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err = ReadCSV(ctx, f, opts.CSV)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: read ledger %s", path)
		}
	case ".xlsx":
		var err error
		rows, err = ReadXLSX(path, opts.XLSX)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: read ledger %s", path)
		}
	default:
		return nil, nil, eris.Errorf("ingest: unsupported ledger format %q", filepath.Ext(path))
	}
	recs, diags := ParseLedger(rows, filepath.Base(path), opts.Ledger)
	return recs, diags, nil
}

// LoadExtractions reads an extraction JSON file for src.
func LoadExtractions(path string, src model.Source) ([]*model.SourceRecord, []model.Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: open %s extraction %s", src, path)
	}
	defer f.Close() //nolint:errcheck
	return DecodeExtractions(f, src, filepath.Base(path))
}
