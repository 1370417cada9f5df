package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/recon-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS review_sessions (
	session_id TEXT PRIMARY KEY,
	saved_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS review_corrections (
	session_id  TEXT NOT NULL REFERENCES review_sessions(session_id) ON DELETE CASCADE,
	document_id TEXT NOT NULL,
	source      TEXT NOT NULL,
	field       TEXT NOT NULL,
	value       TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	PRIMARY KEY (session_id, document_id, source, field)
);

CREATE TABLE IF NOT EXISTS review_judgments (
	session_id  TEXT NOT NULL REFERENCES review_sessions(session_id) ON DELETE CASCADE,
	document_id TEXT NOT NULL,
	status      TEXT NOT NULL,
	PRIMARY KEY (session_id, document_id)
);

CREATE INDEX IF NOT EXISTS idx_review_sessions_saved_at ON review_sessions(saved_at);
`

// Migrate creates the review tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the stored session in one transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	savedAt := snap.SavedAt.UTC()
	if snap.SavedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO review_sessions (session_id, saved_at) VALUES (?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET saved_at = excluded.saved_at`,
		snap.SessionID, savedAt,
	); err != nil {
		return eris.Wrapf(err, "sqlite: upsert session %s", snap.SessionID)
	}
	for _, table := range []string{"review_corrections", "review_judgments"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = ?`, snap.SessionID); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for _, c := range snap.Corrections {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO review_corrections (session_id, document_id, source, field, value, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			snap.SessionID, c.DocumentID, string(c.Source), string(c.Field), c.Value, c.CreatedAt.UTC(),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert correction %s/%s", c.DocumentID, c.Field)
		}
	}
	for _, doc := range model.SortedKeys(snap.Judgments) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO review_judgments (session_id, document_id, status) VALUES (?, ?, ?)`,
			snap.SessionID, doc, string(snap.Judgments[doc]),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert judgment %s", doc)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// LoadSnapshot reads a session. Unknown ids return ErrSessionNotFound.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, sessionID string) (*model.Snapshot, error) {
	snap := &model.Snapshot{SessionID: sessionID, Judgments: map[string]model.JudgmentStatus{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT saved_at FROM review_sessions WHERE session_id = ?`, sessionID,
	).Scan(&snap.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrSessionNotFound, "sqlite: load %s", sessionID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load session %s", sessionID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, source, field, value, created_at FROM review_corrections
		 WHERE session_id = ? ORDER BY document_id, field, source`, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query corrections")
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, err
		}
		snap.Corrections = append(snap.Corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate corrections")
	}

	jrows, err := s.db.QueryContext(ctx,
		`SELECT document_id, status FROM review_judgments WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query judgments")
	}
	defer jrows.Close() //nolint:errcheck
	for jrows.Next() {
		var doc, status string
		if err := jrows.Scan(&doc, &status); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan judgment")
		}
		snap.Judgments[doc] = model.JudgmentStatus(status)
	}
	return snap, eris.Wrap(jrows.Err(), "sqlite: iterate judgments")
}

// ListSessions returns stored sessions newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]model.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.saved_at,
			(SELECT COUNT(*) FROM review_corrections c WHERE c.session_id = s.session_id),
			(SELECT COUNT(*) FROM review_judgments j WHERE j.session_id = s.session_id)
		FROM review_sessions s
		ORDER BY s.saved_at DESC, s.session_id
		LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.SessionInfo
	for rows.Next() {
		var info model.SessionInfo
		if err := rows.Scan(&info.SessionID, &info.SavedAt, &info.Corrections, &info.Judgments); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		out = append(out, info)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate sessions")
}

// DeleteSession removes a session and everything saved under it.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"review_corrections", "review_judgments"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = ?`, sessionID); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM review_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete session %s", sessionID)
	}
	if err := checkRowsAffected(res, sessionID); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// helpers

func checkRowsAffected(res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrSessionNotFound, "session %s", sessionID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCorrection(row scannable) (model.Correction, error) {
	var c model.Correction
	var source, field string
	if err := row.Scan(&c.DocumentID, &source, &field, &c.Value, &c.CreatedAt); err != nil {
		return c, eris.Wrap(err, "scan correction")
	}
	c.Source = model.Source(source)
	c.Field = model.FieldKey(field)
	return c, nil
}
