package sale

import (
	"time"

	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/types"
)

// Split is the division of a sale price between the platform and the
// creator. PlatformFee + CreatorPayment always equals Price.
type Split struct {
	Price          types.Money `json:"price"`
	PlatformFee    types.Money `json:"platform_fee"`
	CreatorPayment types.Money `json:"creator_payment"`
}

// Compute splits price with a platform fee of feePercent percent, truncated.
func Compute(price types.Money, feePercent uint8) Split {
	fee := price.Percent(int64(feePercent))
	return Split{
		Price:          price,
		PlatformFee:    fee,
		CreatorPayment: price.Subtract(fee),
	}
}

type Purchase struct {
	types.Entity
	ID             id.PurchaseID `json:"id"`
	ContentID      content.ID    `json:"content_id"`
	Buyer          string        `json:"buyer"`
	Creator        string        `json:"creator"`
	PreviousHolder string        `json:"previous_holder,omitempty"`
	Mode           content.Mode  `json:"mode"`
	Price          types.Money   `json:"price"`
	PlatformFee    types.Money   `json:"platform_fee"`
	CreatorPayment types.Money   `json:"creator_payment"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty"`
	PurchasedAt    time.Time     `json:"purchased_at"`
}

type ListOpts struct {
	ContentID content.ID
	Buyer     string
	Limit     int
	Offset    int
}
