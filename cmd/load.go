package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/ingest"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/recon"
	"github.com/sells-group/recon-cli/internal/store"
)

// ingestOptions translates the ingest config section. Column mappings
// naming an unknown field are dropped with a warning.
func ingestOptions(c config.IngestConfig) ingest.Options {
	opts := ingest.Options{
		Ledger: ingest.LedgerOptions{DocumentIDHeader: c.DocumentIDHeader},
		CSV:    ingest.CSVOptions{Charset: c.LedgerCharset},
		XLSX:   ingest.XLSXOptions{SheetName: c.LedgerSheet},
	}
	if d := []rune(c.LedgerDelimiter); len(d) == 1 {
		opts.CSV.Delimiter = d[0]
	}
	if len(c.LedgerColumns) > 0 {
		opts.Ledger.Columns = make(map[string]model.FieldKey, len(c.LedgerColumns))
		for _, header := range model.SortedKeys(c.LedgerColumns) {
			key, ok := model.ParseFieldKey(c.LedgerColumns[header])
			if !ok {
				zap.L().Warn("ignoring ledger column mapping with unknown field",
					zap.String("header", header),
					zap.String("field", c.LedgerColumns[header]),
				)
				continue
			}
			opts.Ledger.Columns[header] = key
		}
	}
	return opts
}

// loadEngine reads the three sources and, when sessionID names a stored
// session, rehydrates its corrections and confirmed judgments. An unknown
// session id starts a fresh session under that id.
func loadEngine(ctx context.Context, paths ingest.Paths, opts ingest.Options, sessionID string, st store.Store) (*recon.Engine, error) {
	data, err := ingest.Load(ctx, paths, opts)
	if err != nil {
		return nil, err
	}
	engine := recon.New(data, sessionID)
	if sessionID == "" || st == nil {
		return engine, nil
	}

	snap, err := st.LoadSnapshot(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		zap.L().Info("starting new session", zap.String("session_id", sessionID))
		return engine, nil
	}
	if err != nil {
		return nil, err
	}
	engine.Restore(snap)
	zap.L().Info("session restored",
		zap.String("session_id", sessionID),
		zap.Int("corrections", len(snap.Corrections)),
		zap.Int("judgments", len(snap.Judgments)),
	)
	return engine, nil
}
