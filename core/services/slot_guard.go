package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/mudler/xlog"
)

const (
	LockModeNone    = "none"
	LockModeProcess = "process"
	LockModeFile    = "file"
)

// SlotGuard serialises mutations of the provider's clone-slot pool.
// Acquire blocks until the region is owned or ctx is done; the returned
// release func must be called exactly once.
type SlotGuard interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type noopSlotGuard struct{}

func (noopSlotGuard) Acquire(context.Context) (func(), error) {
	return func() {}, nil
}

// NoSlotGuard keeps the unsynchronised read-delete-create behaviour: concurrent
// requests may evict each other's clones.
func NoSlotGuard() SlotGuard {
	return noopSlotGuard{}
}

// ProcessSlotGuard is a context aware mutex for a single process.
type ProcessSlotGuard struct {
	sem chan struct{}
}

func NewProcessSlotGuard() *ProcessSlotGuard {
	return &ProcessSlotGuard{sem: make(chan struct{}, 1)}
}

func (g *ProcessSlotGuard) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.sem <- struct{}{}:
		return func() { <-g.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FileSlotGuard extends the process guard with an advisory file lock so that
// several processes sharing one provider account are serialised as well.
type FileSlotGuard struct {
	local      *ProcessSlotGuard
	lock       *flock.Flock
	retryDelay time.Duration
}

func NewFileSlotGuard(path string) *FileSlotGuard {
	return &FileSlotGuard{
		local:      NewProcessSlotGuard(),
		lock:       flock.New(path),
		retryDelay: 100 * time.Millisecond,
	}
}

func (g *FileSlotGuard) Acquire(ctx context.Context) (func(), error) {
	releaseLocal, err := g.local.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	locked, err := g.lock.TryLockContext(ctx, g.retryDelay)
	if err != nil || !locked {
		releaseLocal()
		if err == nil {
			err = fmt.Errorf("could not lock %s", g.lock.Path())
		}
		return nil, err
	}
	return func() {
		if err := g.lock.Unlock(); err != nil {
			xlog.Error("failed to unlock clone slot file", "path", g.lock.Path(), "error", err)
		}
		releaseLocal()
	}, nil
}

// NewSlotGuard builds the guard for a configured lock mode.
func NewSlotGuard(mode, lockFile string) (SlotGuard, error) {
	switch mode {
	case LockModeNone:
		return NoSlotGuard(), nil
	case LockModeProcess, "":
		return NewProcessSlotGuard(), nil
	case LockModeFile:
		if lockFile == "" {
			return nil, fmt.Errorf("clone lock mode %q requires a lock file", mode)
		}
		if err := os.MkdirAll(filepath.Dir(lockFile), 0750); err != nil {
			return nil, fmt.Errorf("creating lock file dir: %w", err)
		}
		return NewFileSlotGuard(lockFile), nil
	default:
		return nil, fmt.Errorf("unknown clone lock mode %q", mode)
	}
}
