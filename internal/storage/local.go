package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"docgate/internal/config"
)

const (
	workspacePrefix = "ws_"
	lockName        = ".lock"
)

// localStorage implements Storage on a directory of the local filesystem.
// It is safe for concurrent use by multiple goroutines.
type localStorage struct {
	root string
	lock *flock.Flock
	log  logrus.FieldLogger

	mu     sync.Mutex
	live   map[string]*workspace
	closed bool
}

// NewLocal prepares the scratch root described by cfg.
// It creates the directory if missing, takes an exclusive lock on it and
// removes workspaces left behind by a previous process.
func NewLocal(cfg config.ScratchConfig, log logrus.FieldLogger) (Storage, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("scratch dir is required")
	}
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	lock := flock.New(filepath.Join(root, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock scratch dir: %w", err)
	}
	if !ok {
		return nil, ErrRootLocked
	}

	s := &localStorage{
		root: root,
		lock: lock,
		log:  log.WithField("component", "scratch"),
		live: make(map[string]*workspace),
	}

	n, err := s.Sweep(0)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("sweep orphaned workspaces: %w", err)
	}
	if n > 0 {
		s.log.WithField("removed", n).Info("orphaned workspaces removed")
	}
	return s, nil
}

func (s *localStorage) Acquire(ctx context.Context, op string) (Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	id := uuid.NewString()
	dir := filepath.Join(s.root, workspacePrefix+sanitizeLabel(op)+"_"+id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	ws := &workspace{id: id, dir: dir, owner: s}
	s.live[id] = ws
	s.log.WithFields(logrus.Fields{"workspace": id, "op": op}).Debug("workspace acquired")
	return ws, nil
}

func (s *localStorage) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	liveDirs := make(map[string]struct{}, len(s.live))
	for _, ws := range s.live {
		liveDirs[filepath.Base(ws.dir)] = struct{}{}
	}
	s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), workspacePrefix) {
			continue
		}
		if _, ok := liveDirs[e.Name()]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if olderThan > 0 && info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			s.log.WithError(err).WithField("dir", e.Name()).Warn("sweep failed")
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *localStorage) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *localStorage) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := make([]*workspace, 0, len(s.live))
	for _, ws := range s.live {
		pending = append(pending, ws)
	}
	s.mu.Unlock()

	for _, ws := range pending {
		_ = ws.Release()
	}
	s.log.WithField("released", len(pending)).Info("scratch storage closed")
	return s.lock.Unlock()
}

func (s *localStorage) forget(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

type workspace struct {
	id    string
	dir   string
	owner *localStorage

	once       sync.Once
	releaseErr error
}

func (w *workspace) ID() string  { return w.id }
func (w *workspace) Dir() string { return w.dir }

func (w *workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

func (w *workspace) Save(name string, r io.Reader) (string, int64, error) {
	path := w.Path(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return path, n, nil
}

func (w *workspace) Open(path string) (*os.File, error) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("path %q is outside the workspace", path)
	}
	return os.Open(path)
}

// Release removes the directory once; later calls return the first result.
// Failures are logged and otherwise ignored by callers.
func (w *workspace) Release() error {
	w.once.Do(func() {
		w.releaseErr = os.RemoveAll(w.dir)
		w.owner.forget(w.id)
		entry := w.owner.log.WithField("workspace", w.id)
		if w.releaseErr != nil {
			entry.WithError(w.releaseErr).Warn("workspace release failed")
			return
		}
		entry.Debug("workspace released")
	})
	return w.releaseErr
}

func sanitizeLabel(op string) string {
	op = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, op)
	if op == "" {
		return "op"
	}
	return op
}
