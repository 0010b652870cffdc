package kafka_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/transport"
	"github.com/xraph/paywall/transport/kafka"
)

func TestRecordRoundTrip(t *testing.T) {
	r := &migration.Receipt{
		ID:                id.NewReceiptID(),
		ContentID:         4,
		Holder:            "bob",
		Recipient:         "bob",
		Remaining:         time.Minute,
		SourceDomain:      "a",
		DestinationDomain: "b",
		Item:              content.Item{ID: 4, Creator: "alice", ContentHash: "h"},
	}

	rec, err := kafka.EncodeRecord("receipts", r)
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	if rec.Topic != "receipts" {
		t.Errorf("topic = %q", rec.Topic)
	}
	if string(rec.Key) != "b" {
		t.Errorf("key = %q, want destination", rec.Key)
	}

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["receipt-id"] != r.ID.String() || headers["source-domain"] != "a" {
		t.Errorf("headers = %v", headers)
	}

	got, err := kafka.DecodeRecord(rec)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if got.ID.String() != r.ID.String() || got.Remaining != r.Remaining {
		t.Errorf("decoded = %+v", got)
	}
}

func TestEncodeRecordRejectsInvalidReceipt(t *testing.T) {
	_, err := kafka.EncodeRecord("receipts", &migration.Receipt{})
	if !errors.Is(err, migration.ErrMalformedReceipt) {
		t.Errorf("EncodeRecord = %v, want ErrMalformedReceipt", err)
	}
}

func TestConsumerHandleSettlement(t *testing.T) {
	r := &migration.Receipt{
		ID:                id.NewReceiptID(),
		ContentID:         2,
		Holder:            "bob",
		Recipient:         "bob",
		SourceDomain:      "a",
		DestinationDomain: "b",
		Item:              content.Item{ID: 2, Creator: "alice", ContentHash: "h"},
	}
	rec, err := kafka.EncodeRecord("receipts", r)
	if err != nil {
		t.Fatal(err)
	}
	errDown := errors.New("store unavailable")

	tests := []struct {
		name      string
		rec       *kgo.Record
		deliver   error
		wantErr   bool
		wantCalls int
	}{
		{"delivered", rec, nil, false, 1},
		{"rejected is settled", rec, transport.Rejected(errors.New("forged")), false, 1},
		{"transient is not settled", rec, errDown, true, 3},
		{"other domain", &kgo.Record{Key: []byte("c"), Value: rec.Value}, nil, false, 0},
		{"malformed is settled", &kgo.Record{Key: []byte("b"), Value: []byte("{")}, nil, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			sink := transport.SinkFunc(func(context.Context, *migration.Receipt) error {
				calls++
				return tt.deliver
			})
			c := kafka.NewConsumer(nil, "b", sink,
				kafka.WithLogger(slog.New(slog.DiscardHandler)),
				kafka.WithRetry(backoff.WithBackOff(&backoff.ZeroBackOff{}), backoff.WithMaxTries(3)),
			)

			err := c.Handle(context.Background(), tt.rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errDown) {
				t.Errorf("Handle = %v, want wrapped %v", err, errDown)
			}
			if calls != tt.wantCalls {
				t.Errorf("deliveries = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}
