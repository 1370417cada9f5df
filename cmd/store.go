package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/resilience"
	"github.com/sells-group/recon-cli/internal/store"
)

// initStore opens the configured session store wrapped with retries and a
// circuit breaker.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if err := c.Validate("store"); err != nil {
		return nil, err
	}

	var (
		inner store.Store
		err   error
	)
	switch c.Store.Driver {
	case "sqlite":
		inner, err = store.NewSQLite(c.Store.DatabaseURL)
	case "postgres":
		inner, err = store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	case "file":
		inner, err = store.NewFile(c.Store.Dir)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	r := c.Resilience
	breaker := resilience.NewBreaker(
		r.FailureThreshold,
		time.Duration(r.ResetTimeoutSecs)*time.Second,
		func(from, to resilience.CircuitState) {
			zap.L().Warn("store circuit breaker state change",
				zap.String("driver", c.Store.Driver),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	)
	retry := resilience.NewRetryConfig(r.MaxAttempts, r.InitialBackoffMs, r.MaxBackoffMs)
	return store.NewResilient(inner, c.Store.Driver, retry, breaker), nil
}

// openStore opens and migrates the session store.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
