package content

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/paywall/types"
)

// ID identifies a content item. IDs are assigned sequentially within the
// registering domain's id space and are never reused.
type ID uint64

// SpaceBits is the width of the counter inside one id space.
const SpaceBits = 40

// IDRange is an inclusive span of ids.
type IDRange struct {
	First ID
	Last  ID
}

// Space returns the ids reserved for space n. Domains that exchange items
// must use distinct spaces so their registrations never collide. Space 0
// starts at 1.
func Space(n uint16) IDRange {
	first := ID(n) << SpaceBits
	r := IDRange{First: first, Last: first | (1<<SpaceBits - 1)}
	if n == 0 {
		r.First = 1
	}
	return r
}

// Contains reports whether id falls inside the range.
func (r IDRange) Contains(id ID) bool { return id >= r.First && id <= r.Last }

func (i ID) String() string { return strconv.FormatUint(uint64(i), 10) }

// ParseID parses the decimal form of an ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("content: parse id %q: %w", s, err)
	}
	return ID(v), nil
}

// Mode distinguishes permanent ownership from time-boxed subscription access.
type Mode string

const (
	ModeOwnership    Mode = "ownership"
	ModeSubscription Mode = "subscription"
)

type Item struct {
	types.Entity
	ID                   ID            `json:"id"`
	Creator              string        `json:"creator"`
	ContentHash          string        `json:"content_hash"`
	Price                types.Money   `json:"price"`
	RoyaltyPercentage    uint8         `json:"royalty_percentage"`
	IsSubscription       bool          `json:"is_subscription"`
	SubscriptionDuration time.Duration `json:"subscription_duration"`
	Origin               string        `json:"origin,omitempty"`
}

// Mode reports the access mode fixed at registration.
func (i *Item) Mode() Mode {
	if i.IsSubscription {
		return ModeSubscription
	}
	return ModeOwnership
}

// SameContent reports whether other describes the same immutable content
// as i. Price and timestamps are ignored.
func (i *Item) SameContent(other *Item) bool {
	return i.ID == other.ID &&
		i.Creator == other.Creator &&
		i.ContentHash == other.ContentHash &&
		i.RoyaltyPercentage == other.RoyaltyPercentage &&
		i.IsSubscription == other.IsSubscription &&
		i.SubscriptionDuration == other.SubscriptionDuration
}

// Royalty computes the advisory royalty owed on a resale at salePrice.
func (i *Item) Royalty(salePrice types.Money) *RoyaltyQuote {
	return &RoyaltyQuote{
		ContentID: i.ID,
		Receiver:  i.Creator,
		SalePrice: salePrice,
		Amount:    salePrice.Percent(int64(i.RoyaltyPercentage)),
	}
}

type RoyaltyQuote struct {
	ContentID ID          `json:"content_id"`
	Receiver  string      `json:"receiver"`
	SalePrice types.Money `json:"sale_price"`
	Amount    types.Money `json:"amount"`
}

type ListOpts struct {
	Creator string
	Limit   int
	Offset  int
}
