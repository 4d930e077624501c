// Package lock implements the advisory state-directory lock (§5/§10):
// every mutating operation holds an exclusive lock on the state
// directory for its duration, serializing concurrent invocations of
// the engine against the same install tree.
package lock

import (
	"context"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// Lock wraps an exclusive advisory lock on one state directory's lock
// file.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Path returns the lock file path under the given state directory.
func Path(stateDir string) string {
	return filepath.Join(stateDir, zkgconfig.LockFileName)
}

// New builds a Lock for the given state directory without acquiring it.
func New(stateDir string) *Lock {
	p := Path(stateDir)
	return &Lock{fl: flock.New(p), path: p}
}

// Acquire blocks until the lock is held or ctx is cancelled. A second
// invocation of the engine against the same state directory blocks
// here rather than racing the first (§5).
func (l *Lock) Acquire(ctx context.Context) error {
	ok, err := l.fl.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil {
		return zkgerrors.Lock(l.path, "failed to acquire state directory lock", err)
	}
	if !ok {
		return zkgerrors.Lock(l.path, "state directory is locked by another process", nil)
	}
	return nil
}

// Release unlocks the lock file. Safe to call on a Lock that was never
// acquired.
func (l *Lock) Release() error {
	if !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return zkgerrors.Lock(l.path, "failed to release state directory lock", err)
	}
	return nil
}

// WithLock runs fn while holding the exclusive lock on stateDir,
// always releasing it afterward regardless of fn's outcome.
func WithLock(ctx context.Context, stateDir string, fn func() error) error {
	l := New(stateDir)
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
