package custody_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/paywall/custody"
)

func TestBookLifecycle(t *testing.T) {
	ctx := context.Background()
	b := custody.NewBook()

	if _, err := b.CurrentHolder(ctx, 1); !errors.Is(err, custody.ErrNotMinted) {
		t.Fatalf("CurrentHolder before mint = %v, want ErrNotMinted", err)
	}

	if err := b.Mint(ctx, 1, "alice"); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := b.Mint(ctx, 1, "bob"); !errors.Is(err, custody.ErrAlreadyMinted) {
		t.Fatalf("second Mint = %v, want ErrAlreadyMinted", err)
	}

	if err := b.Transfer(ctx, 1, "bob", "carol"); !errors.Is(err, custody.ErrNotHolder) {
		t.Fatalf("Transfer by non-holder = %v, want ErrNotHolder", err)
	}
	if err := b.Transfer(ctx, 1, "alice", "bob"); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	holder, err := b.CurrentHolder(ctx, 1)
	if err != nil || holder != "bob" {
		t.Fatalf("CurrentHolder = %q, %v; want bob", holder, err)
	}

	if err := b.Burn(ctx, 1); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if err := b.Burn(ctx, 1); !errors.Is(err, custody.ErrNotMinted) {
		t.Fatalf("second Burn = %v, want ErrNotMinted", err)
	}
}

func TestBookApprovals(t *testing.T) {
	ctx := context.Background()
	b := custody.NewBook()
	_ = b.Mint(ctx, 5, "alice")

	tests := []struct {
		actor string
		want  bool
	}{
		{"alice", true},
		{"operator", false},
	}
	for _, tt := range tests {
		got, err := b.IsApprovedOrHolder(ctx, 5, tt.actor)
		if err != nil || got != tt.want {
			t.Errorf("IsApprovedOrHolder(%s) = %v, %v; want %v", tt.actor, got, err, tt.want)
		}
	}

	if err := b.Approve(ctx, 5, "mallory", "operator"); !errors.Is(err, custody.ErrNotHolder) {
		t.Fatalf("Approve by non-holder = %v", err)
	}
	if err := b.Approve(ctx, 5, "alice", "operator"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if ok, _ := b.IsApprovedOrHolder(ctx, 5, "operator"); !ok {
		t.Error("operator should be approved")
	}

	// Moving the token clears approvals.
	_ = b.Transfer(ctx, 5, "alice", "bob")
	if ok, _ := b.IsApprovedOrHolder(ctx, 5, "operator"); ok {
		t.Error("approval should not survive a transfer")
	}
}

func TestBookRejectsEmptyAccount(t *testing.T) {
	ctx := context.Background()
	b := custody.NewBook()

	if err := b.Mint(ctx, 1, ""); !errors.Is(err, custody.ErrEmptyAccount) {
		t.Errorf("Mint to empty = %v", err)
	}
	_ = b.Mint(ctx, 1, "alice")
	if err := b.Transfer(ctx, 1, "alice", ""); !errors.Is(err, custody.ErrEmptyAccount) {
		t.Errorf("Transfer to empty = %v", err)
	}
}
