package content

import (
	"context"

	"github.com/xraph/paywall/types"
)

type Store interface {
	// NextContentID returns the id the next registration in r should use:
	// one past the highest stored id inside r, including imported items, or
	// r.First when r is empty. The result may exceed r.Last.
	NextContentID(ctx context.Context, r IDRange) (ID, error)
	CreateContent(ctx context.Context, item *Item) error
	GetContent(ctx context.Context, contentID ID) (*Item, error)
	ListContent(ctx context.Context, opts ListOpts) ([]*Item, error)
	UpdateContentPrice(ctx context.Context, contentID ID, price types.Money) error
}
