package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/checkpoint"
	"github.com/sells-group/recon-cli/internal/ingest"
	"github.com/sells-group/recon-cli/internal/server"
)

var (
	servePort    int
	serveSession string
	servePaths   ingest.Paths
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reviewer action surface over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		engine, err := loadEngine(ctx, servePaths, ingestOptions(cfg.Ingest), serveSession, st)
		if err != nil {
			return err
		}

		srv := server.New(engine, st, server.Options{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
		})

		if cfg.Server.AutosaveSecs > 0 {
			cp := checkpoint.New(srv, time.Duration(cfg.Server.AutosaveSecs)*time.Second)
			done := make(chan struct{})
			go func() {
				cp.Run(ctx)
				close(done)
			}()
			defer func() {
				stop()
				<-done
			}()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		zap.L().Info("review session ready",
			zap.String("session_id", engine.SessionID()),
			zap.Int("documents", len(engine.DocumentIDs())),
		)
		return listenAndServe(ctx, fmt.Sprintf(":%d", port), srv.Handler(), time.Duration(cfg.Server.ShutdownSecs)*time.Second)
	},
}

// listenAndServe runs handler until ctx is done, then shuts down gracefully.
func listenAndServe(ctx context.Context, addr string, handler http.Handler, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveSession, "session", "", "session id to resume or create (default: new random id)")
	serveCmd.Flags().StringVar(&servePaths.Ledger, "ledger", "", "ledger export (.csv or .xlsx)")
	serveCmd.Flags().StringVar(&servePaths.Invoice, "invoice", "", "invoice extraction JSON")
	serveCmd.Flags().StringVar(&servePaths.BL, "bl", "", "bill-of-lading extraction JSON")
	_ = serveCmd.MarkFlagRequired("ledger")
	rootCmd.AddCommand(serveCmd)
}
