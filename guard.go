package paywall

import (
	"context"
	"sync"
)

type guardKey struct{ g *guard }

type guardState uint8

const (
	stateFree guardState = iota
	// stateHeld marks a context running inside a mutation.
	stateHeld
	// stateCallback marks a context handed to plugin hooks. Hooks may read
	// but must not mutate, and may outlive the call that emitted them.
	stateCallback
)

// guard serializes mutations on one ledger. A mutation marks its context;
// a call arriving with a marked context is re-entering and is rejected.
// Waiting writers honour context cancellation.
type guard struct {
	sem chan struct{}
	mu  sync.RWMutex
}

func newGuard() *guard {
	return &guard{sem: make(chan struct{}, 1)}
}

// enter acquires the guard for a mutation. The returned context must be
// passed to everything the mutation calls.
func (g *guard) enter(ctx context.Context) (context.Context, func(), error) {
	if g.state(ctx) != stateFree {
		return nil, nil, ErrReentrancyRejected
	}

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	g.mu.Lock()

	release := func() {
		g.mu.Unlock()
		<-g.sem
	}
	return context.WithValue(ctx, guardKey{g}, stateHeld), release, nil
}

// read blocks until no mutation is in flight. Calls made from inside a
// mutation already see its state and skip the lock; hook contexts do not,
// so a slow hook never observes a later mutation half-applied.
func (g *guard) read(ctx context.Context) func() {
	if g.state(ctx) == stateHeld {
		return func() {}
	}
	g.mu.RLock()
	return g.mu.RUnlock
}

// callback derives the context plugin hooks run with.
func (g *guard) callback(ctx context.Context) context.Context {
	return context.WithValue(ctx, guardKey{g}, stateCallback)
}

func (g *guard) state(ctx context.Context) guardState {
	s, _ := ctx.Value(guardKey{g}).(guardState)
	return s
}

// guarded runs fn as a mutation and releases the guard before returning,
// so events about its result can be emitted outside the lock.
func guarded[T any](ctx context.Context, g *guard, fn func(context.Context) (T, error)) (T, error) {
	ctx, release, err := g.enter(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	defer release()
	return fn(ctx)
}
