// Package checkpoint periodically persists a review session while it is
// being served.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
)

// DefaultInterval is used when a non-positive interval is configured.
const DefaultInterval = time.Minute

// finalSaveTimeout bounds the save performed after the loop stops.
const finalSaveTimeout = 5 * time.Second

// Session is the state a Checkpointer saves.
type Session interface {
	Snapshot() *model.Snapshot
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
}

// Checkpointer saves a session on a fixed interval, skipping ticks where
// nothing persistable changed.
type Checkpointer struct {
	session  Session
	interval time.Duration
	last     string
}

// New returns a checkpointer over session. The session's current state is
// treated as already saved.
func New(session Session, interval time.Duration) *Checkpointer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Checkpointer{session: session, interval: interval}
	if fp, err := fingerprint(session.Snapshot()); err == nil {
		c.last = fp
	}
	return c
}

// Run saves on every tick until ctx is cancelled, then makes one last save
// so a clean shutdown loses no confirmed work.
func (c *Checkpointer) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "checkpoint"))
	log.Info("starting session checkpoints", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
			c.tick(finalCtx, log)
			cancel()
			log.Info("session checkpoints stopped")
			return
		case <-ticker.C:
			c.tick(ctx, log)
		}
	}
}

func (c *Checkpointer) tick(ctx context.Context, log *zap.Logger) {
	saved, err := c.Checkpoint(ctx)
	if err != nil {
		log.Error("checkpoint: save failed", zap.Error(err))
		return
	}
	if saved {
		log.Debug("checkpoint: session saved")
	}
}

// Checkpoint saves the session if its corrections or confirmed judgments
// changed since the last successful save. It reports whether it saved.
func (c *Checkpointer) Checkpoint(ctx context.Context) (bool, error) {
	snap := c.session.Snapshot()
	fp, err := fingerprint(snap)
	if err != nil {
		return false, err
	}
	if fp == c.last {
		return false, nil
	}
	if err := c.session.SaveSnapshot(ctx, snap); err != nil {
		return false, eris.Wrapf(err, "checkpoint: save session %s", snap.SessionID)
	}
	c.last = fp
	return true, nil
}

// fingerprint hashes the persistable content of snap, ignoring SavedAt.
func fingerprint(snap *model.Snapshot) (string, error) {
	b, err := json.Marshal(struct {
		SessionID   string
		Corrections []model.Correction
		Judgments   map[string]model.JudgmentStatus
	}{snap.SessionID, snap.Corrections, snap.Judgments})
	if err != nil {
		return "", eris.Wrap(err, "checkpoint: fingerprint")
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
