package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v5"

	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/transport"
)

func TestBusRoutesByDestination(t *testing.T) {
	bus := transport.NewBus()

	var gotA, gotB int
	bus.Attach("a", transport.SinkFunc(func(context.Context, *migration.Receipt) error {
		gotA++
		return nil
	}))
	bus.Attach("b", transport.SinkFunc(func(context.Context, *migration.Receipt) error {
		gotB++
		return nil
	}))

	ctx := context.Background()
	if err := bus.Send(ctx, &migration.Receipt{DestinationDomain: "b"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotA != 0 || gotB != 1 {
		t.Errorf("deliveries a=%d b=%d, want a=0 b=1", gotA, gotB)
	}

	bus.Detach("b")
	err := bus.Send(ctx, &migration.Receipt{DestinationDomain: "b"})
	if !errors.Is(err, transport.ErrNoRoute) {
		t.Errorf("Send after detach = %v, want ErrNoRoute", err)
	}
}

func TestBusPropagatesSinkError(t *testing.T) {
	boom := errors.New("boom")
	bus := transport.NewBus()
	bus.Attach("a", transport.SinkFunc(func(context.Context, *migration.Receipt) error { return boom }))

	if err := bus.Send(context.Background(), &migration.Receipt{DestinationDomain: "a"}); !errors.Is(err, boom) {
		t.Errorf("Send = %v, want boom", err)
	}
}

func TestDeliverWithRetry(t *testing.T) {
	fast := []backoff.RetryOption{
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
		backoff.WithMaxTries(3),
	}
	errFlaky := errors.New("store unavailable")

	tests := []struct {
		name      string
		failures  int
		fail      error
		wantErr   error
		wantCalls int
	}{
		{"first try", 0, nil, nil, 1},
		{"recovers", 2, errFlaky, nil, 3},
		{"gives up", 5, errFlaky, errFlaky, 3},
		{"rejected once", 5, transport.Rejected(errors.New("forged")), transport.ErrRejected, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			sink := transport.SinkFunc(func(context.Context, *migration.Receipt) error {
				calls++
				if calls <= tt.failures {
					return tt.fail
				}
				return nil
			})

			err := transport.DeliverWithRetry(context.Background(), sink, &migration.Receipt{}, fast...)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("DeliverWithRetry = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("DeliverWithRetry = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRejectedWrapsOnce(t *testing.T) {
	if transport.Rejected(nil) != nil {
		t.Error("Rejected(nil) should stay nil")
	}
	base := errors.New("forged")
	once := transport.Rejected(base)
	if !errors.Is(once, base) || !errors.Is(once, transport.ErrRejected) {
		t.Errorf("Rejected = %v", once)
	}
	if transport.Rejected(once) != once {
		t.Error("Rejected wrapped an already rejected error")
	}
}
