package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/ingest"
	"github.com/sells-group/recon-cli/internal/report"
)

var (
	checkPaths ingest.Paths
	checkXLSX  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Reconcile the three sources and print a verdict summary",
	Long:  "Loads the ledger, invoice and bill-of-lading files, prints per-field match counts and ingestion diagnostics, and optionally writes a reconciliation workbook.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("check"); err != nil {
			return err
		}
		return runCheck(cmd.Context(), os.Stdout, checkPaths, checkXLSX)
	},
}

func runCheck(ctx context.Context, out io.Writer, paths ingest.Paths, xlsxPath string) error {
	engine, err := loadEngine(ctx, paths, ingestOptions(cfg.Ingest), "", nil)
	if err != nil {
		return err
	}

	report.FormatSummary(out, engine.Summary(), engine.Dataset().Diagnostics)

	if xlsxPath != "" {
		if err := report.WriteXLSX(xlsxPath, engine.Rows()); err != nil {
			return err
		}
		zap.L().Info("wrote reconciliation workbook", zap.String("path", xlsxPath))
	}
	return nil
}

func init() {
	checkCmd.Flags().StringVar(&checkPaths.Ledger, "ledger", "", "ledger export (.csv or .xlsx)")
	checkCmd.Flags().StringVar(&checkPaths.Invoice, "invoice", "", "invoice extraction JSON")
	checkCmd.Flags().StringVar(&checkPaths.BL, "bl", "", "bill-of-lading extraction JSON")
	checkCmd.Flags().StringVar(&checkXLSX, "xlsx", "", "write a reconciliation workbook to this path")
	_ = checkCmd.MarkFlagRequired("ledger")
	rootCmd.AddCommand(checkCmd)
}
