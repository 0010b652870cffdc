// Package transport carries migration receipts between execution domains.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v5"

	"github.com/xraph/paywall/migration"
)

var (
	// ErrNoRoute is returned when no sink is attached for a receipt's destination.
	ErrNoRoute = errors.New("transport: no route to destination")

	// ErrRejected marks a receipt the destination refused outright.
	// Redelivering it cannot succeed, so consumers acknowledge it and leave
	// recovery to the source domain.
	ErrRejected = errors.New("transport: receipt rejected")
)

// Rejected wraps err as a final delivery failure.
func Rejected(err error) error {
	if err == nil || errors.Is(err, ErrRejected) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRejected, err)
}

// DefaultMaxTries bounds delivery attempts for a single receipt.
const DefaultMaxTries uint = 5

// DefaultRetry returns the retry policy consumers use unless configured
// otherwise.
func DefaultRetry() []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(DefaultMaxTries),
	}
}

// DeliverWithRetry hands r to s, retrying failures until the policy gives
// up. A rejection ends the attempts immediately and is returned as is.
func DeliverWithRetry(ctx context.Context, s Sink, r *migration.Receipt, opts ...backoff.RetryOption) error {
	if len(opts) == 0 {
		opts = DefaultRetry()
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.Deliver(ctx, r)
		if errors.Is(err, ErrRejected) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, opts...)
	return err
}

// Transport delivers a receipt produced by a debit toward its destination.
type Transport interface {
	Send(ctx context.Context, r *migration.Receipt) error
}

// Sink accepts receipts on the destination domain.
type Sink interface {
	Deliver(ctx context.Context, r *migration.Receipt) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, r *migration.Receipt) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, r *migration.Receipt) error { return f(ctx, r) }

var _ Transport = (*Bus)(nil)

// Bus routes receipts synchronously to sinks in the same process, keyed by
// destination domain.
type Bus struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

func NewBus() *Bus {
	return &Bus{sinks: make(map[string]Sink)}
}

// Attach registers the sink for a domain, replacing any previous one.
func (b *Bus) Attach(domain string, s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[domain] = s
}

func (b *Bus) Detach(domain string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sinks, domain)
}

func (b *Bus) Send(ctx context.Context, r *migration.Receipt) error {
	b.mu.RLock()
	s, ok := b.sinks[r.DestinationDomain]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRoute, r.DestinationDomain)
	}
	return s.Deliver(ctx, r)
}
