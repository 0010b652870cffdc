package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/store/memory"
	"github.com/xraph/paywall/types"
)

func TestContentIDsAdvancePastImports(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	space := content.Space(0)
	next, _ := s.NextContentID(ctx, space)
	if next != 1 {
		t.Fatalf("first id = %d, want 1", next)
	}

	if err := s.CreateContent(ctx, &content.Item{ID: 1, Creator: "a"}); err != nil {
		t.Fatal(err)
	}
	// Imported items may arrive with any id.
	if err := s.CreateContent(ctx, &content.Item{ID: 7, Creator: "b"}); err != nil {
		t.Fatal(err)
	}

	next, _ = s.NextContentID(ctx, space)
	if next != 8 {
		t.Errorf("next id = %d, want 8", next)
	}

	err := s.CreateContent(ctx, &content.Item{ID: 7})
	if !errors.Is(err, paywall.ErrAlreadyExists) {
		t.Errorf("duplicate create = %v, want ErrAlreadyExists", err)
	}
}

func TestContentIDsStayInsideTheirSpace(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	one := content.Space(1)

	next, _ := s.NextContentID(ctx, one)
	if next != one.First {
		t.Fatalf("first id in space 1 = %d, want %d", next, one.First)
	}

	// An item imported from space 1 must not move space 0's counter.
	if err := s.CreateContent(ctx, &content.Item{ID: one.First + 4, Creator: "b"}); err != nil {
		t.Fatal(err)
	}
	if next, _ := s.NextContentID(ctx, content.Space(0)); next != 1 {
		t.Errorf("space 0 next = %d, want 1", next)
	}
	if next, _ := s.NextContentID(ctx, one); next != one.First+5 {
		t.Errorf("space 1 next = %d, want %d", next, one.First+5)
	}
}

func TestContentIsolation(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_ = s.CreateContent(ctx, &content.Item{ID: 1, Price: types.New(100, "usdc")})

	got, _ := s.GetContent(ctx, 1)
	got.Price = types.New(1, "usdc")

	again, _ := s.GetContent(ctx, 1)
	if again.Price.Amount != 100 {
		t.Error("mutating a returned item changed the store")
	}

	if err := s.UpdateContentPrice(ctx, 1, types.New(250, "usdc")); err != nil {
		t.Fatal(err)
	}
	again, _ = s.GetContent(ctx, 1)
	if again.Price.Amount != 250 {
		t.Errorf("price = %d, want 250", again.Price.Amount)
	}

	if _, err := s.GetContent(ctx, 2); !errors.Is(err, paywall.ErrContentNotFound) {
		t.Errorf("GetContent(missing) = %v", err)
	}
	if err := s.UpdateContentPrice(ctx, 2, types.New(1, "usdc")); !paywall.IsNotFound(err) {
		t.Errorf("UpdateContentPrice(missing) = %v", err)
	}
}

func TestListContent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	for i, creator := range []string{"alice", "bob", "alice", "alice"} {
		_ = s.CreateContent(ctx, &content.Item{ID: content.ID(i + 1), Creator: creator})
	}

	tests := []struct {
		name string
		opts content.ListOpts
		want []content.ID
	}{
		{"all", content.ListOpts{}, []content.ID{1, 2, 3, 4}},
		{"by creator", content.ListOpts{Creator: "alice"}, []content.ID{1, 3, 4}},
		{"limit", content.ListOpts{Limit: 2}, []content.ID{1, 2}},
		{"offset", content.ListOpts{Offset: 3}, []content.ID{4}},
		{"offset past end", content.ListOpts{Offset: 10}, []content.ID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := s.ListContent(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(items) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(items), len(tt.want))
			}
			for i, item := range items {
				if item.ID != tt.want[i] {
					t.Errorf("items[%d] = %d, want %d", i, item.ID, tt.want[i])
				}
			}
		})
	}
}

func TestGrants(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	exp := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.GetGrant(ctx, 1, "bob"); !errors.Is(err, paywall.ErrGrantNotFound) {
		t.Fatalf("GetGrant(missing) = %v", err)
	}

	_ = s.PutGrant(ctx, &access.Grant{ContentID: 1, Holder: "bob", ExpiresAt: exp})
	_ = s.PutGrant(ctx, &access.Grant{ContentID: 1, Holder: "bob", ExpiresAt: exp.Add(time.Hour)})
	_ = s.PutGrant(ctx, &access.Grant{ContentID: 1, Holder: "amy", ExpiresAt: exp})
	_ = s.PutGrant(ctx, &access.Grant{ContentID: 2, Holder: "bob", ExpiresAt: exp})

	g, err := s.GetGrant(ctx, 1, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !g.ExpiresAt.Equal(exp.Add(time.Hour)) {
		t.Errorf("PutGrant did not overwrite: %v", g.ExpiresAt)
	}

	grants, _ := s.ListGrants(ctx, 1)
	if len(grants) != 2 || grants[0].Holder != "amy" {
		t.Errorf("ListGrants = %+v", grants)
	}

	_ = s.DeleteGrant(ctx, 1, "bob")
	if err := s.DeleteGrant(ctx, 1, "bob"); err != nil {
		t.Errorf("deleting a missing grant = %v", err)
	}
	if _, err := s.GetGrant(ctx, 1, "bob"); !errors.Is(err, paywall.ErrGrantNotFound) {
		t.Errorf("grant survived delete: %v", err)
	}
}

func TestPurchases(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	p1 := &sale.Purchase{ID: id.NewPurchaseID(), ContentID: 1, Buyer: "bob"}
	p2 := &sale.Purchase{ID: id.NewPurchaseID(), ContentID: 2, Buyer: "bob"}
	p3 := &sale.Purchase{ID: id.NewPurchaseID(), ContentID: 1, Buyer: "amy"}
	for _, p := range []*sale.Purchase{p1, p2, p3} {
		if err := s.CreatePurchase(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CreatePurchase(ctx, p1); !errors.Is(err, paywall.ErrAlreadyExists) {
		t.Errorf("duplicate purchase = %v", err)
	}

	got, err := s.GetPurchase(ctx, p2.ID)
	if err != nil || got.ContentID != 2 {
		t.Errorf("GetPurchase = %+v, %v", got, err)
	}

	byContent, _ := s.ListPurchases(ctx, sale.ListOpts{ContentID: 1})
	if len(byContent) != 2 {
		t.Errorf("by content = %d, want 2", len(byContent))
	}
	byBuyer, _ := s.ListPurchases(ctx, sale.ListOpts{Buyer: "bob", Limit: 1})
	if len(byBuyer) != 1 || byBuyer[0].ContentID != 1 {
		t.Errorf("by buyer = %+v", byBuyer)
	}
}

func TestConsumeReceipt(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	rid := id.NewReceiptID()

	if ok, _ := s.ReceiptConsumed(ctx, rid); ok {
		t.Fatal("fresh receipt reported consumed")
	}
	if err := s.ConsumeReceipt(ctx, rid, time.Now()); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.ReceiptConsumed(ctx, rid); !ok {
		t.Error("receipt not recorded")
	}
	if err := s.ConsumeReceipt(ctx, rid, time.Now()); !errors.Is(err, paywall.ErrAlreadyExists) {
		t.Errorf("replay = %v, want ErrAlreadyExists", err)
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	if err := s.Ping(ctx); !errors.Is(err, paywall.ErrStoreClosed) {
		t.Errorf("Ping after close = %v", err)
	}
	if err := s.CreateContent(ctx, &content.Item{ID: 1}); !errors.Is(err, paywall.ErrStoreClosed) {
		t.Errorf("CreateContent after close = %v", err)
	}
}
