// Package storage provides request-scoped scratch space on the local disk.
//
// Every request acquires its own Workspace, a uniquely named directory under
// the scratch root. All artifacts of the request live inside it and are
// removed together when the workspace is released.
package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

var (
	// ErrClosed is returned by Acquire after the storage has been closed.
	ErrClosed = errors.New("scratch storage is closed")
	// ErrRootLocked means another process already owns the scratch root.
	ErrRootLocked = errors.New("scratch root is locked by another process")
)

// Workspace is the scratch directory owned by one request.
// Release is idempotent and safe to call from any goroutine.
type Workspace interface {
	// ID is the unique identifier of the workspace.
	ID() string
	// Dir is the absolute directory backing the workspace.
	Dir() string
	// Path returns the location of an artifact inside the workspace.
	// Only the base name of name is used.
	Path(name string) string
	// Save streams r into the named artifact and returns its path and size.
	Save(name string, r io.Reader) (string, int64, error)
	// Open opens a file that lives inside the workspace.
	Open(path string) (*os.File, error)
	// Release removes the workspace and everything in it.
	Release() error
}

// Storage hands out workspaces under a single scratch root.
type Storage interface {
	// Acquire creates a fresh workspace. op is used only to label the directory.
	Acquire(ctx context.Context, op string) (Workspace, error)
	// Sweep removes workspaces not owned by a live request whose last
	// modification is older than olderThan. It returns how many were removed.
	Sweep(olderThan time.Duration) (int, error)
	// Live reports how many workspaces are currently acquired.
	Live() int
	// Close releases every live workspace and gives up the scratch root.
	Close() error
}
