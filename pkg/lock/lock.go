// Package lock provides the exclusive critical section that every mutating
// stock operation runs inside.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"go.uber.org/multierr"
)

// Unlocker releases a held lock.
type Unlocker interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive ownership. Acquire blocks until the lock is held,
// the wait timeout elapses, or ctx is done.
type Locker interface {
	Acquire(ctx context.Context) (Unlocker, error)
}

// UnlockFunc adapts a function to Unlocker.
type UnlockFunc func(ctx context.Context) error

func (f UnlockFunc) Release(ctx context.Context) error {
	return f(ctx)
}

// Local is an in-process single-slot semaphore.
type Local struct {
	slot chan struct{}
	wait time.Duration
}

// NewLocal builds an in-process lock. A non-positive wait means callers wait
// as long as their context allows.
func NewLocal(wait time.Duration) *Local {
	return &Local{slot: make(chan struct{}, 1), wait: wait}
}

func (l *Local) Acquire(ctx context.Context) (Unlocker, error) {
	waitCtx, cancel := withWait(ctx, l.wait)
	defer cancel()

	select {
	case l.slot <- struct{}{}:
	case <-waitCtx.Done():
		return nil, waitError(waitCtx.Err())
	}

	var once sync.Once
	return UnlockFunc(func(context.Context) error {
		once.Do(func() { <-l.slot })
		return nil
	}), nil
}

// Chain acquires every locker in order and releases them in reverse.
type Chain []Locker

func (c Chain) Acquire(ctx context.Context) (Unlocker, error) {
	held := make([]Unlocker, 0, len(c))
	for _, locker := range c {
		if locker == nil {
			continue
		}
		u, err := locker.Acquire(ctx)
		if err != nil {
			return nil, multierr.Append(err, releaseAll(ctx, held))
		}
		held = append(held, u)
	}
	return UnlockFunc(func(ctx context.Context) error {
		return releaseAll(ctx, held)
	}), nil
}

func releaseAll(ctx context.Context, held []Unlocker) error {
	var err error
	for i := len(held) - 1; i >= 0; i-- {
		err = multierr.Append(err, held[i].Release(ctx))
	}
	return err
}

func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

func waitError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "timed out waiting for stock lock")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock lock wait aborted")
}
