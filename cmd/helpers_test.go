package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/ingest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testConfig installs a config pointing at a temp dir and restores the
// previous one on cleanup.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	prev := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "file",
			DatabaseURL: filepath.Join(dir, "recon.db"),
			Dir:         filepath.Join(dir, "sessions"),
		},
		Ingest: config.IngestConfig{
			LedgerCharset:    "utf-8",
			LedgerDelimiter:  ",",
			DocumentIDHeader: "Billing Document",
		},
		Resilience: config.ResilienceConfig{
			MaxAttempts:      1,
			InitialBackoffMs: 1,
			MaxBackoffMs:     1,
			FailureThreshold: 5,
			ResetTimeoutSecs: 1,
		},
	}
	t.Cleanup(func() { cfg = prev })
	return cfg
}

func fixturePaths(t *testing.T) ingest.Paths {
	t.Helper()
	dir := t.TempDir()
	return ingest.Paths{
		Ledger: writeFile(t, dir, "ledger.csv",
			"Billing Document,Date,Amount\n94459227,2024-01-10,900\n94459228,2024-02-01,50\n"),
		Invoice: writeFile(t, dir, "invoice.json",
			`{"documents":[{"billing_document":"94459227","date":{"value":"2024-01-10","confidence":0.9},"amount":"950"}]}`),
		BL: writeFile(t, dir, "bl.json",
			`{"documents":[{"billing_document":"94459227","date":"2024-01-10"}]}`),
	}
}
