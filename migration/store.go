package migration

import (
	"context"
	"time"

	"github.com/xraph/paywall/id"
)

// Store tracks receipts that have already been credited so a replayed
// receipt cannot mint custody twice.
type Store interface {
	ReceiptConsumed(ctx context.Context, receiptID id.ReceiptID) (bool, error)
	// ConsumeReceipt marks a receipt as credited. It fails with an
	// already-exists error when the receipt was consumed before.
	ConsumeReceipt(ctx context.Context, receiptID id.ReceiptID, consumedAt time.Time) error
}
