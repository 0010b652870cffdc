package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	audithook "github.com/xraph/paywall/audit_hook"
	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/types"
)

type captured struct {
	events []*audithook.AuditEvent
}

func (c *captured) recorder() audithook.Recorder {
	return audithook.RecorderFunc(func(_ context.Context, e *audithook.AuditEvent) error {
		c.events = append(c.events, e)
		return nil
	})
}

func (c *captured) actions() []string {
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

var quiet = audithook.WithLogger(slog.New(slog.DiscardHandler))

func TestRecordsLedgerEvents(t *testing.T) {
	ctx := context.Background()
	c := &captured{}
	ext := audithook.New(c.recorder(), quiet)

	item := &content.Item{ID: 7, Creator: "alice", Price: types.New(100, "usdc")}
	expires := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	_ = ext.OnContentRegistered(ctx, item)
	_ = ext.OnContentPurchased(ctx, &sale.Purchase{
		ID:             id.NewPurchaseID(),
		ContentID:      7,
		Buyer:          "bob",
		Mode:           content.ModeSubscription,
		Price:          types.New(100, "usdc"),
		PlatformFee:    types.New(5, "usdc"),
		CreatorPayment: types.New(95, "usdc"),
		ExpiresAt:      &expires,
	})
	_ = ext.OnPurchaseFailed(ctx, 7, "carol", errors.New("insufficient funds"))
	_ = ext.OnCustodyDebited(ctx, &migration.Receipt{ID: id.NewReceiptID(), ContentID: 7, Remaining: time.Hour})

	want := []string{
		audithook.ActionContentRegistered,
		audithook.ActionContentPurchased,
		audithook.ActionPurchaseFailed,
		audithook.ActionCustodyDebited,
	}
	got := c.actions()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action %d = %s, want %s", i, got[i], want[i])
		}
	}

	reg := c.events[0]
	if reg.ResourceID != "7" || reg.Metadata["creator"] != "alice" || reg.Metadata["price"] != "100 usdc" {
		t.Errorf("registered event = %+v", reg)
	}

	failed := c.events[2]
	if failed.Outcome != audithook.OutcomeFailure || failed.Reason != "insufficient funds" {
		t.Errorf("failed event = %+v", failed)
	}
	if failed.Metadata["error"] != "insufficient funds" {
		t.Errorf("error metadata = %v", failed.Metadata["error"])
	}
}

func TestOnlyDeniedAccessIsAudited(t *testing.T) {
	ctx := context.Background()
	c := &captured{}
	ext := audithook.New(c.recorder(), quiet)

	_ = ext.OnAccessChecked(ctx, &access.Result{Allowed: true, ContentID: 1, Actor: "bob"})
	_ = ext.OnAccessChecked(ctx, &access.Result{Allowed: false, ContentID: 1, Actor: "eve", Reason: "no subscription"})

	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	if c.events[0].Action != audithook.ActionAccessDenied || c.events[0].Metadata["reason"] != "no subscription" {
		t.Errorf("event = %+v", c.events[0])
	}
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	item := &content.Item{ID: 1, Price: types.New(1, "usdc")}

	tests := []struct {
		name string
		opt  audithook.Option
		want int
	}{
		{"all by default", nil, 2},
		{"enabled only", audithook.WithEnabledActions(audithook.ActionPriceChanged), 1},
		{"disabled", audithook.WithDisabledActions(audithook.ActionPriceChanged), 1},
		{"disable both", audithook.WithDisabledActions(audithook.ActionPriceChanged, audithook.ActionContentRegistered), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &captured{}
			opts := []audithook.Option{quiet}
			if tt.opt != nil {
				opts = append(opts, tt.opt)
			}
			ext := audithook.New(c.recorder(), opts...)

			_ = ext.OnContentRegistered(ctx, item)
			_ = ext.OnPriceChanged(ctx, item, types.New(2, "usdc"))

			if len(c.events) != tt.want {
				t.Errorf("events = %v, want %d", c.actions(), tt.want)
			}
		})
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}), quiet)

	if err := ext.OnContentRegistered(context.Background(), &content.Item{ID: 1}); err != nil {
		t.Errorf("hook returned %v", err)
	}
}
