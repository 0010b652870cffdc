package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

// ==================== Content models ====================

type contentModel struct {
	grove.BaseModel `grove:"table:paywall_contents"`

	ID                   int64     `grove:"id,pk"`
	Creator              string    `grove:"creator"`
	ContentHash          string    `grove:"content_hash"`
	PriceAmount          int64     `grove:"price_amount"`
	PriceDenom           string    `grove:"price_denom"`
	RoyaltyPercentage    int16     `grove:"royalty_percentage"`
	IsSubscription       bool      `grove:"is_subscription"`
	SubscriptionDuration int64     `grove:"subscription_duration"`
	Origin               string    `grove:"origin"`
	CreatedAt            time.Time `grove:"created_at"`
	UpdatedAt            time.Time `grove:"updated_at"`
}

func toContentModel(item *content.Item) *contentModel {
	return &contentModel{
		ID:                   int64(item.ID),
		Creator:              item.Creator,
		ContentHash:          item.ContentHash,
		PriceAmount:          item.Price.Amount,
		PriceDenom:           item.Price.Denom,
		RoyaltyPercentage:    int16(item.RoyaltyPercentage),
		IsSubscription:       item.IsSubscription,
		SubscriptionDuration: int64(item.SubscriptionDuration),
		Origin:               item.Origin,
		CreatedAt:            item.CreatedAt,
		UpdatedAt:            item.UpdatedAt,
	}
}

func fromContentModel(m *contentModel) *content.Item {
	return &content.Item{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                   content.ID(m.ID),
		Creator:              m.Creator,
		ContentHash:          m.ContentHash,
		Price:                types.Money{Amount: m.PriceAmount, Denom: m.PriceDenom},
		RoyaltyPercentage:    uint8(m.RoyaltyPercentage),
		IsSubscription:       m.IsSubscription,
		SubscriptionDuration: time.Duration(m.SubscriptionDuration),
		Origin:               m.Origin,
	}
}

// ==================== Grant models ====================

type grantModel struct {
	grove.BaseModel `grove:"table:paywall_grants"`

	ContentID int64     `grove:"content_id,pk"`
	Holder    string    `grove:"holder,pk"`
	ExpiresAt time.Time `grove:"expires_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toGrantModel(g *access.Grant) *grantModel {
	return &grantModel{
		ContentID: int64(g.ContentID),
		Holder:    g.Holder,
		ExpiresAt: g.ExpiresAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func fromGrantModel(m *grantModel) *access.Grant {
	return &access.Grant{
		ContentID: content.ID(m.ContentID),
		Holder:    m.Holder,
		ExpiresAt: m.ExpiresAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ==================== Purchase models ====================

type purchaseModel struct {
	grove.BaseModel `grove:"table:paywall_purchases"`

	ID                   string     `grove:"id,pk"`
	ContentID            int64      `grove:"content_id"`
	Buyer                string     `grove:"buyer"`
	Creator              string     `grove:"creator"`
	PreviousHolder       string     `grove:"previous_holder"`
	Mode                 string     `grove:"mode"`
	Denom                string     `grove:"denom"`
	PriceAmount          int64      `grove:"price_amount"`
	PlatformFeeAmount    int64      `grove:"platform_fee_amount"`
	CreatorPaymentAmount int64      `grove:"creator_payment_amount"`
	ExpiresAt            *time.Time `grove:"expires_at"`
	PurchasedAt          time.Time  `grove:"purchased_at"`
	CreatedAt            time.Time  `grove:"created_at"`
	UpdatedAt            time.Time  `grove:"updated_at"`
}

func toPurchaseModel(p *sale.Purchase) *purchaseModel {
	return &purchaseModel{
		ID:                   p.ID.String(),
		ContentID:            int64(p.ContentID),
		Buyer:                p.Buyer,
		Creator:              p.Creator,
		PreviousHolder:       p.PreviousHolder,
		Mode:                 string(p.Mode),
		Denom:                p.Price.Denom,
		PriceAmount:          p.Price.Amount,
		PlatformFeeAmount:    p.PlatformFee.Amount,
		CreatorPaymentAmount: p.CreatorPayment.Amount,
		ExpiresAt:            p.ExpiresAt,
		PurchasedAt:          p.PurchasedAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func fromPurchaseModel(m *purchaseModel) (*sale.Purchase, error) {
	purchaseID, err := id.ParsePurchaseID(m.ID)
	if err != nil {
		return nil, err
	}
	return &sale.Purchase{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             purchaseID,
		ContentID:      content.ID(m.ContentID),
		Buyer:          m.Buyer,
		Creator:        m.Creator,
		PreviousHolder: m.PreviousHolder,
		Mode:           content.Mode(m.Mode),
		Price:          types.Money{Amount: m.PriceAmount, Denom: m.Denom},
		PlatformFee:    types.Money{Amount: m.PlatformFeeAmount, Denom: m.Denom},
		CreatorPayment: types.Money{Amount: m.CreatorPaymentAmount, Denom: m.Denom},
		ExpiresAt:      m.ExpiresAt,
		PurchasedAt:    m.PurchasedAt,
	}, nil
}

// ==================== Withdrawal models ====================

type withdrawalModel struct {
	grove.BaseModel `grove:"table:paywall_withdrawals"`

	ID          string    `grove:"id,pk"`
	Caller      string    `grove:"caller"`
	Treasury    string    `grove:"treasury"`
	Amount      int64     `grove:"amount"`
	Denom       string    `grove:"denom"`
	WithdrawnAt time.Time `grove:"withdrawn_at"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toWithdrawalModel(w *treasury.Withdrawal) *withdrawalModel {
	return &withdrawalModel{
		ID:          w.ID.String(),
		Caller:      w.Caller,
		Treasury:    w.Treasury,
		Amount:      w.Amount.Amount,
		Denom:       w.Amount.Denom,
		WithdrawnAt: w.WithdrawnAt,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func fromWithdrawalModel(m *withdrawalModel) (*treasury.Withdrawal, error) {
	withdrawalID, err := id.ParseWithdrawalID(m.ID)
	if err != nil {
		return nil, err
	}
	return &treasury.Withdrawal{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          withdrawalID,
		Caller:      m.Caller,
		Treasury:    m.Treasury,
		Amount:      types.Money{Amount: m.Amount, Denom: m.Denom},
		WithdrawnAt: m.WithdrawnAt,
	}, nil
}

// ==================== Receipt models ====================

type receiptModel struct {
	grove.BaseModel `grove:"table:paywall_consumed_receipts"`

	ID         string    `grove:"id,pk"`
	ConsumedAt time.Time `grove:"consumed_at"`
}
