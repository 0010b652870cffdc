package store

import (
	"context"

	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/treasury"
)

// Store is the unified storage interface for all paywall entities.
// Method names are prefixed by entity so the sub-interfaces embed without
// conflicts.
type Store interface {
	content.Store
	access.Store
	sale.Store
	treasury.Store
	migration.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
