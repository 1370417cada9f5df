package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/db"
	"github.com/sells-group/recon-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var (
	correctionColumns = []string{"session_id", "document_id", "source", "field", "value", "created_at"}
	judgmentColumns   = []string{"session_id", "document_id", "status"}
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS review_sessions (
	session_id TEXT PRIMARY KEY,
	saved_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS review_corrections (
	session_id  TEXT NOT NULL REFERENCES review_sessions(session_id) ON DELETE CASCADE,
	document_id TEXT NOT NULL,
	source      TEXT NOT NULL,
	field       TEXT NOT NULL,
	value       TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, document_id, source, field)
);

CREATE TABLE IF NOT EXISTS review_judgments (
	session_id  TEXT NOT NULL REFERENCES review_sessions(session_id) ON DELETE CASCADE,
	document_id TEXT NOT NULL,
	status      TEXT NOT NULL CHECK (status IN ('complete_match', 'partial_error', 'review_required', 'no_evidence')),
	PRIMARY KEY (session_id, document_id)
);

CREATE INDEX IF NOT EXISTS idx_review_sessions_saved_at ON review_sessions(saved_at DESC);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Migrate creates the review tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveSnapshot replaces the stored session in one transaction, copying
// corrections and judgments in bulk.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	savedAt := snap.SavedAt.UTC()
	if snap.SavedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO review_sessions (session_id, saved_at) VALUES ($1, $2)
		 ON CONFLICT (session_id) DO UPDATE SET saved_at = EXCLUDED.saved_at`,
		snap.SessionID, savedAt,
	); err != nil {
		return eris.Wrapf(err, "postgres: upsert session %s", snap.SessionID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM review_corrections WHERE session_id = $1`, snap.SessionID); err != nil {
		return eris.Wrap(err, "postgres: clear corrections")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM review_judgments WHERE session_id = $1`, snap.SessionID); err != nil {
		return eris.Wrap(err, "postgres: clear judgments")
	}

	corrections := make([][]any, 0, len(snap.Corrections))
	for _, c := range snap.Corrections {
		corrections = append(corrections, []any{
			snap.SessionID, c.DocumentID, string(c.Source), string(c.Field), c.Value, c.CreatedAt.UTC(),
		})
	}
	if _, err := db.CopyFrom(ctx, tx, "review_corrections", correctionColumns, corrections); err != nil {
		return eris.Wrap(err, "postgres: save corrections")
	}

	judgments := make([][]any, 0, len(snap.Judgments))
	for _, doc := range model.SortedKeys(snap.Judgments) {
		judgments = append(judgments, []any{snap.SessionID, doc, string(snap.Judgments[doc])})
	}
	if _, err := db.CopyFrom(ctx, tx, "review_judgments", judgmentColumns, judgments); err != nil {
		return eris.Wrap(err, "postgres: save judgments")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

// LoadSnapshot reads a session. Unknown ids return ErrSessionNotFound.
func (s *PostgresStore) LoadSnapshot(ctx context.Context, sessionID string) (*model.Snapshot, error) {
	snap := &model.Snapshot{SessionID: sessionID, Judgments: map[string]model.JudgmentStatus{}}

	err := s.pool.QueryRow(ctx,
		`SELECT saved_at FROM review_sessions WHERE session_id = $1`, sessionID,
	).Scan(&snap.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrSessionNotFound, "postgres: load %s", sessionID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load session %s", sessionID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT document_id, source, field, value, created_at FROM review_corrections
		 WHERE session_id = $1 ORDER BY document_id, field, source`, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query corrections")
	}
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		snap.Corrections = append(snap.Corrections, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate corrections")
	}

	jrows, err := s.pool.Query(ctx,
		`SELECT document_id, status FROM review_judgments WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query judgments")
	}
	defer jrows.Close()
	for jrows.Next() {
		var doc, status string
		if err := jrows.Scan(&doc, &status); err != nil {
			return nil, eris.Wrap(err, "postgres: scan judgment")
		}
		snap.Judgments[doc] = model.JudgmentStatus(status)
	}
	return snap, eris.Wrap(jrows.Err(), "postgres: iterate judgments")
}

// ListSessions returns stored sessions newest first.
func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]model.SessionInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.session_id, s.saved_at,
			(SELECT COUNT(*) FROM review_corrections c WHERE c.session_id = s.session_id),
			(SELECT COUNT(*) FROM review_judgments j WHERE j.session_id = s.session_id)
		FROM review_sessions s
		ORDER BY s.saved_at DESC, s.session_id
		LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var out []model.SessionInfo
	for rows.Next() {
		var info model.SessionInfo
		var corrections, judgments int64
		if err := rows.Scan(&info.SessionID, &info.SavedAt, &corrections, &judgments); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		info.Corrections = int(corrections)
		info.Judgments = int(judgments)
		out = append(out, info)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate sessions")
}

// DeleteSession removes a session; corrections and judgments cascade.
func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM review_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete session %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrSessionNotFound, "session %s", sessionID)
	}
	return nil
}
