// Package plugin provides an extensible plugin system for paywall.
// Plugins can hook into ledger lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnContentRegistered is called after a content item is registered.
type OnContentRegistered interface {
	Plugin
	OnContentRegistered(ctx context.Context, item *content.Item) error
}

// OnPriceChanged is called after a creator changes an item's price.
type OnPriceChanged interface {
	Plugin
	OnPriceChanged(ctx context.Context, item *content.Item, oldPrice types.Money) error
}

// OnRoyaltyPaid is called when a caller reports a royalty payment on resale.
type OnRoyaltyPaid interface {
	Plugin
	OnRoyaltyPaid(ctx context.Context, quote *content.RoyaltyQuote, payer string) error
}

// ──────────────────────────────────────────────────
// Access hooks
// ──────────────────────────────────────────────────

// OnAccessChecked is called for every access decision.
type OnAccessChecked interface {
	Plugin
	OnAccessChecked(ctx context.Context, result *access.Result) error
}

// ──────────────────────────────────────────────────
// Purchase hooks
// ──────────────────────────────────────────────────

// OnContentPurchased is called after a purchase settles.
type OnContentPurchased interface {
	Plugin
	OnContentPurchased(ctx context.Context, p *sale.Purchase) error
}

// OnPurchaseFailed is called when a purchase is rejected or rolled back.
type OnPurchaseFailed interface {
	Plugin
	OnPurchaseFailed(ctx context.Context, contentID content.ID, buyer string, err error) error
}

// OnFeesWithdrawn is called after platform fees are swept to the treasury.
type OnFeesWithdrawn interface {
	Plugin
	OnFeesWithdrawn(ctx context.Context, w *treasury.Withdrawal) error
}

// ──────────────────────────────────────────────────
// Migration hooks
// ──────────────────────────────────────────────────

// OnCustodyDebited is called after custody leaves this domain.
type OnCustodyDebited interface {
	Plugin
	OnCustodyDebited(ctx context.Context, r *migration.Receipt) error
}

// OnCustodyCredited is called after a receipt is credited on this domain.
type OnCustodyCredited interface {
	Plugin
	OnCustodyCredited(ctx context.Context, r *migration.Receipt) error
}

// OnCustodyReclaimed is called after the source domain takes back custody
// for a receipt that was never credited.
type OnCustodyReclaimed interface {
	Plugin
	OnCustodyReclaimed(ctx context.Context, r *migration.Receipt) error
}
