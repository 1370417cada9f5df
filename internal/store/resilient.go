package store

import (
	"context"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/resilience"
)

// Resilient wraps a Store with retries on transient errors and a circuit
// breaker shared by every operation.
type Resilient struct {
	inner   Store
	backend string
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewResilient wraps inner. backend names the store in retry logs.
func NewResilient(inner Store, backend string, retry resilience.RetryConfig, breaker *resilience.Breaker) *Resilient {
	return &Resilient{inner: inner, backend: backend, retry: retry, breaker: breaker}
}

func (r *Resilient) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	cfg := r.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(r.backend, op)
	}
	attempt := func(ctx context.Context) error { return resilience.Do(ctx, cfg, fn) }
	if r.breaker == nil {
		return attempt(ctx)
	}
	return r.breaker.Execute(ctx, attempt)
}

// SaveSnapshot implements Store.
func (r *Resilient) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	return r.do(ctx, "save_snapshot", func(ctx context.Context) error {
		return r.inner.SaveSnapshot(ctx, snap)
	})
}

// LoadSnapshot implements Store.
func (r *Resilient) LoadSnapshot(ctx context.Context, sessionID string) (*model.Snapshot, error) {
	var snap *model.Snapshot
	err := r.do(ctx, "load_snapshot", func(ctx context.Context) error {
		var err error
		snap, err = r.inner.LoadSnapshot(ctx, sessionID)
		return err
	})
	return snap, err
}

// ListSessions implements Store.
func (r *Resilient) ListSessions(ctx context.Context, limit int) ([]model.SessionInfo, error) {
	var out []model.SessionInfo
	err := r.do(ctx, "list_sessions", func(ctx context.Context) error {
		var err error
		out, err = r.inner.ListSessions(ctx, limit)
		return err
	})
	return out, err
}

// DeleteSession implements Store.
func (r *Resilient) DeleteSession(ctx context.Context, sessionID string) error {
	return r.do(ctx, "delete_session", func(ctx context.Context) error {
		return r.inner.DeleteSession(ctx, sessionID)
	})
}

// Migrate implements Store.
func (r *Resilient) Migrate(ctx context.Context) error {
	return r.do(ctx, "migrate", r.inner.Migrate)
}

// Close implements Store.
func (r *Resilient) Close() error {
	return r.inner.Close()
}
