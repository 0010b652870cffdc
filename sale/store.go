package sale

import (
	"context"

	"github.com/xraph/paywall/id"
)

type Store interface {
	CreatePurchase(ctx context.Context, p *Purchase) error
	GetPurchase(ctx context.Context, purchaseID id.PurchaseID) (*Purchase, error)
	ListPurchases(ctx context.Context, opts ListOpts) ([]*Purchase, error)
}
