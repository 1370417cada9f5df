// Package store persists review sessions: the corrections and confirmed
// judgments a reviewer has committed against one dataset.
package store

import (
	"context"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

// ErrSessionNotFound is returned when a session id has never been saved.
var ErrSessionNotFound = eris.New("store: session not found")

// Store defines the persistence interface for review sessions.
type Store interface {
	// SaveSnapshot replaces everything stored for snap.SessionID.
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
	LoadSnapshot(ctx context.Context, sessionID string) (*model.Snapshot, error)
	// ListSessions returns sessions newest first. limit <= 0 means 100.
	ListSessions(ctx context.Context, limit int) ([]model.SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateSessionID rejects ids that are empty or could escape a directory.
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) || id == "." || id == ".." {
		return eris.Errorf("store: invalid session id %q", id)
	}
	return nil
}

func validateSnapshot(snap *model.Snapshot) error {
	if snap == nil {
		return eris.New("store: nil snapshot")
	}
	return ValidateSessionID(snap.SessionID)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
