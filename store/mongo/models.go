package mongo

import (
	"strconv"
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

	ID                   int64     `grove:"id,pk"                 bson:"_id"`
	Creator              string    `grove:"creator"               bson:"creator"`
	ContentHash          string    `grove:"content_hash"          bson:"content_hash"`
	Price                moneyDoc  `grove:"price"                 bson:"price"`
	RoyaltyPercentage    int32     `grove:"royalty_percentage"    bson:"royalty_percentage"`
	IsSubscription       bool      `grove:"is_subscription"       bson:"is_subscription"`
	SubscriptionDuration int64     `grove:"subscription_duration" bson:"subscription_duration"`
	Origin               string    `grove:"origin"                bson:"origin"`
	CreatedAt            time.Time `grove:"created_at"            bson:"created_at"`
	UpdatedAt            time.Time `grove:"updated_at"            bson:"updated_at"`
}

type moneyDoc struct {
	Amount int64  `bson:"amount"`
	Denom  string `bson:"denom"`
}

func toMoneyDoc(m types.Money) moneyDoc { return moneyDoc{Amount: m.Amount, Denom: m.Denom} }

func (d moneyDoc) money() types.Money { return types.Money{Amount: d.Amount, Denom: d.Denom} }

func toContentModel(item *content.Item) *contentModel {
	return &contentModel{
		ID:                   int64(item.ID),
		Creator:              item.Creator,
		ContentHash:          item.ContentHash,
		Price:                toMoneyDoc(item.Price),
		RoyaltyPercentage:    int32(item.RoyaltyPercentage),
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
		Price:                m.Price.money(),
		RoyaltyPercentage:    uint8(m.RoyaltyPercentage),
		IsSubscription:       m.IsSubscription,
		SubscriptionDuration: time.Duration(m.SubscriptionDuration),
		Origin:               m.Origin,
	}
}

// ==================== Grant models ====================

type grantModel struct {
	grove.BaseModel `grove:"table:paywall_grants"`

	Key       string    `grove:"key,pk"     bson:"_id"`
	ContentID int64     `grove:"content_id" bson:"content_id"`
	Holder    string    `grove:"holder"     bson:"holder"`
	ExpiresAt time.Time `grove:"expires_at" bson:"expires_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

// grantKey is the document id of a grant: one document per (content, holder).
func grantKey(contentID content.ID, holder string) string {
	return strconv.FormatUint(uint64(contentID), 10) + ":" + holder
}

func toGrantModel(g *access.Grant) *grantModel {
	return &grantModel{
		Key:       grantKey(g.ContentID, g.Holder),
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

	ID             string     `grove:"id,pk"           bson:"_id"`
	ContentID      int64      `grove:"content_id"      bson:"content_id"`
	Buyer          string     `grove:"buyer"           bson:"buyer"`
	Creator        string     `grove:"creator"         bson:"creator"`
	PreviousHolder string     `grove:"previous_holder" bson:"previous_holder,omitempty"`
	Mode           string     `grove:"mode"            bson:"mode"`
	Price          moneyDoc   `grove:"price"           bson:"price"`
	PlatformFee    moneyDoc   `grove:"platform_fee"    bson:"platform_fee"`
	CreatorPayment moneyDoc   `grove:"creator_payment" bson:"creator_payment"`
	ExpiresAt      *time.Time `grove:"expires_at"      bson:"expires_at,omitempty"`
	PurchasedAt    time.Time  `grove:"purchased_at"    bson:"purchased_at"`
	CreatedAt      time.Time  `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"      bson:"updated_at"`
}

func toPurchaseModel(p *sale.Purchase) *purchaseModel {
	return &purchaseModel{
		ID:             p.ID.String(),
		ContentID:      int64(p.ContentID),
		Buyer:          p.Buyer,
		Creator:        p.Creator,
		PreviousHolder: p.PreviousHolder,
		Mode:           string(p.Mode),
		Price:          toMoneyDoc(p.Price),
		PlatformFee:    toMoneyDoc(p.PlatformFee),
		CreatorPayment: toMoneyDoc(p.CreatorPayment),
		ExpiresAt:      p.ExpiresAt,
		PurchasedAt:    p.PurchasedAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
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
		Price:          m.Price.money(),
		PlatformFee:    m.PlatformFee.money(),
		CreatorPayment: m.CreatorPayment.money(),
		ExpiresAt:      m.ExpiresAt,
		PurchasedAt:    m.PurchasedAt,
	}, nil
}

// ==================== Withdrawal models ====================

type withdrawalModel struct {
	grove.BaseModel `grove:"table:paywall_withdrawals"`

	ID          string    `grove:"id,pk"        bson:"_id"`
	Caller      string    `grove:"caller"       bson:"caller"`
	Treasury    string    `grove:"treasury"     bson:"treasury"`
	Amount      moneyDoc  `grove:"amount"       bson:"amount"`
	WithdrawnAt time.Time `grove:"withdrawn_at" bson:"withdrawn_at"`
	CreatedAt   time.Time `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"   bson:"updated_at"`
}

func toWithdrawalModel(w *treasury.Withdrawal) *withdrawalModel {
	return &withdrawalModel{
		ID:          w.ID.String(),
		Caller:      w.Caller,
		Treasury:    w.Treasury,
		Amount:      toMoneyDoc(w.Amount),
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
		Amount:      m.Amount.money(),
		WithdrawnAt: m.WithdrawnAt,
	}, nil
}

// ==================== Receipt models ====================

type receiptModel struct {
	grove.BaseModel `grove:"table:paywall_consumed_receipts"`

	ID         string    `grove:"id,pk"       bson:"_id"`
	ConsumedAt time.Time `grove:"consumed_at" bson:"consumed_at"`
}
