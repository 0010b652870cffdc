package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/types"
)

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestExpectInserted(t *testing.T) {
	driverErr := errors.New("driver gone")

	tests := []struct {
		name    string
		res     fakeResult
		wantErr error
	}{
		{"inserted", fakeResult{rows: 1}, nil},
		{"conflict", fakeResult{rows: 0}, paywall.ErrAlreadyExists},
		{"driver error", fakeResult{err: driverErr}, driverErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := expectInserted(tt.res, "receipt")
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPurchaseModelSharesDenomination(t *testing.T) {
	expires := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	p := &sale.Purchase{
		Entity:         types.NewEntity(),
		ID:             id.NewPurchaseID(),
		ContentID:      3,
		Buyer:          "bob",
		Creator:        "carol",
		Mode:           content.ModeSubscription,
		Price:          types.New(100, "usdc"),
		PlatformFee:    types.New(5, "usdc"),
		CreatorPayment: types.New(95, "usdc"),
		ExpiresAt:      &expires,
		PurchasedAt:    expires.Add(-30 * 24 * time.Hour),
	}

	got, err := fromPurchaseModel(toPurchaseModel(p))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID.String() != p.ID.String() {
		t.Errorf("ID = %s, want %s", got.ID, p.ID)
	}
	if !got.PlatformFee.Equal(p.PlatformFee) || !got.CreatorPayment.Equal(p.CreatorPayment) {
		t.Errorf("split = %v/%v, want %v/%v", got.PlatformFee, got.CreatorPayment, p.PlatformFee, p.CreatorPayment)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, expires)
	}
}

func TestFromPurchaseModelRejectsForeignID(t *testing.T) {
	m := &purchaseModel{ID: id.NewWithdrawalID().String()}
	if _, err := fromPurchaseModel(m); err == nil {
		t.Fatal("expected error for a withdrawal id in the purchases table")
	}
}
