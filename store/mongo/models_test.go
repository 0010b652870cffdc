package mongo

import (
	"testing"
	"time"

	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/types"
)

func TestGrantKey(t *testing.T) {
	if got := grantKey(42, "alice"); got != "42:alice" {
		t.Errorf("grantKey = %q", got)
	}
	if grantKey(1, "2:x") == grantKey(12, ":x") {
		t.Error("keys must not collide across content ids")
	}
}

func TestContentModelKeepsDenomination(t *testing.T) {
	item := &content.Item{
		Entity:               types.NewEntity(),
		ID:                   7,
		Creator:              "carol",
		ContentHash:          "sha256:abc",
		Price:                types.New(250, "wei"),
		RoyaltyPercentage:    10,
		IsSubscription:       true,
		SubscriptionDuration: 30 * 24 * time.Hour,
		Origin:               "a",
	}

	got := fromContentModel(toContentModel(item))
	if !got.SameContent(item) {
		t.Errorf("content changed: %+v", got)
	}
	if !got.Price.Equal(item.Price) {
		t.Errorf("Price = %v, want %v", got.Price, item.Price)
	}
	if got.Origin != "a" {
		t.Errorf("Origin = %q", got.Origin)
	}
}

func TestGrantModelUsesCompositeKey(t *testing.T) {
	g := &access.Grant{ContentID: 5, Holder: "bob", ExpiresAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	m := toGrantModel(g)
	if m.Key != "5:bob" {
		t.Errorf("Key = %q", m.Key)
	}
	back := fromGrantModel(m)
	if back.ContentID != 5 || back.Holder != "bob" || !back.ExpiresAt.Equal(g.ExpiresAt) {
		t.Errorf("grant changed: %+v", back)
	}
}

func TestMigrationIndexesCoverCollections(t *testing.T) {
	idx := migrationIndexes()
	for _, col := range []string{colContents, colGrants, colPurchases, colWithdrawals, colReceipts} {
		if len(idx[col]) == 0 {
			t.Errorf("no indexes for %s", col)
		}
	}
}
