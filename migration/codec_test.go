package migration_test

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/types"
)

func sampleReceipt() *migration.Receipt {
	return &migration.Receipt{
		ID:                id.NewReceiptID(),
		ContentID:         7,
		Holder:            "bob",
		Recipient:         "bob-on-b",
		Remaining:         40 * time.Second,
		SourceDomain:      "chain-a",
		DestinationDomain: "chain-b",
		Item: content.Item{
			ID:                   7,
			Creator:              "alice",
			ContentHash:          "QmHash",
			Price:                types.New(100, "usdc"),
			RoyaltyPercentage:    10,
			IsSubscription:       true,
			SubscriptionDuration: time.Minute,
		},
		IssuedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncodeDecode(t *testing.T) {
	r := sampleReceipt()

	data, err := migration.Encode(r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := migration.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.ID.String() != r.ID.String() {
		t.Errorf("ID = %s, want %s", got.ID, r.ID)
	}
	if got.Remaining != r.Remaining {
		t.Errorf("Remaining = %v, want %v", got.Remaining, r.Remaining)
	}
	if !got.Item.SameContent(&r.Item) {
		t.Errorf("item snapshot changed: %+v", got.Item)
	}
	if !got.IssuedAt.Equal(r.IssuedAt) {
		t.Errorf("IssuedAt = %v, want %v", got.IssuedAt, r.IssuedAt)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "nope"},
		{"wrong version", `{"v":2,"receipt":{}}`},
		{"missing receipt", `{"v":1}`},
		{"missing id", `{"v":1,"receipt":{"content_id":1,"recipient":"x","destination_domain":"b","item":{"id":1}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := migration.Decode([]byte(tt.payload))
			if !errors.Is(err, migration.ErrMalformedReceipt) {
				t.Errorf("Decode error = %v, want ErrMalformedReceipt", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *migration.Receipt)
	}{
		{"missing content", func(r *migration.Receipt) { r.ContentID = 0 }},
		{"missing recipient", func(r *migration.Receipt) { r.Recipient = "" }},
		{"missing destination", func(r *migration.Receipt) { r.DestinationDomain = "" }},
		{"negative remaining", func(r *migration.Receipt) { r.Remaining = -time.Second }},
		{"snapshot mismatch", func(r *migration.Receipt) { r.Item.ID = 99 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleReceipt()
			tt.mutate(r)
			if err := migration.Validate(r); !errors.Is(err, migration.ErrMalformedReceipt) {
				t.Errorf("Validate = %v, want ErrMalformedReceipt", err)
			}
		})
	}

	if err := migration.Validate(sampleReceipt()); err != nil {
		t.Errorf("Validate(valid) = %v", err)
	}
}
