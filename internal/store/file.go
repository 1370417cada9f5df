package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recon-cli/internal/model"
)

const sessionFileExt = ".yaml"

// FileStore keeps one YAML document per session in a directory. It suits a
// single reviewer working locally without a database.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFile returns a FileStore rooted at dir.
func NewFile(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, eris.New("file: directory is required")
	}
	return &FileStore{dir: dir}, nil
}

// Migrate creates the session directory.
func (s *FileStore) Migrate(_ context.Context) error {
	return eris.Wrapf(os.MkdirAll(s.dir, 0o755), "file: create %s", s.dir)
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+sessionFileExt)
}

// SaveSnapshot writes the session atomically via a temp file and rename.
func (s *FileStore) SaveSnapshot(_ context.Context, snap *model.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	out := *snap
	if out.SavedAt.IsZero() {
		out.SavedAt = time.Now().UTC()
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return eris.Wrap(err, "file: marshal snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrapf(err, "file: create %s", s.dir)
	}
	tmp, err := os.CreateTemp(s.dir, snap.SessionID+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "file: create temp")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return eris.Wrap(err, "file: write snapshot")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return eris.Wrap(err, "file: close temp")
	}
	return eris.Wrap(os.Rename(tmp.Name(), s.path(snap.SessionID)), "file: rename snapshot")
}

// LoadSnapshot reads a session. Unknown ids return ErrSessionNotFound.
func (s *FileStore) LoadSnapshot(_ context.Context, sessionID string) (*model.Snapshot, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.path(sessionID))
}

func (s *FileStore) read(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, eris.Wrapf(ErrSessionNotFound, "file: load %s", filepath.Base(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file: read %s", path)
	}

	var snap model.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrapf(err, "file: parse %s", path)
	}
	if snap.Judgments == nil {
		snap.Judgments = map[string]model.JudgmentStatus{}
	}
	return &snap, nil
}

// ListSessions returns stored sessions newest first.
func (s *FileStore) ListSessions(_ context.Context, limit int) ([]model.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file: list %s", s.dir)
	}

	var out []model.SessionInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sessionFileExt) {
			continue
		}
		snap, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, model.SessionInfo{
			SessionID:   snap.SessionID,
			Corrections: len(snap.Corrections),
			Judgments:   len(snap.Judgments),
			SavedAt:     snap.SavedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// DeleteSession removes the session file.
func (s *FileStore) DeleteSession(_ context.Context, sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(sessionID))
	if os.IsNotExist(err) {
		return eris.Wrapf(ErrSessionNotFound, "session %s", sessionID)
	}
	return eris.Wrapf(err, "file: delete %s", sessionID)
}
