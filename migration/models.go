package migration

import (
	"time"

	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
)

// DebitRequest asks the source domain to release custody of a content item
// so it can be credited to Recipient on Destination.
type DebitRequest struct {
	Caller      string     `json:"caller"`
	Holder      string     `json:"holder"`
	ContentID   content.ID `json:"content_id"`
	Recipient   string     `json:"recipient"`
	Destination string     `json:"destination"`
}

// Receipt is produced by a debit and consumed by exactly one credit.
// Remaining is the unexpired subscription time captured at debit; it is
// zero for ownership items and for expired grants.
type Receipt struct {
	ID                id.ReceiptID  `json:"id"`
	ContentID         content.ID    `json:"content_id"`
	Holder            string        `json:"holder"`
	Recipient         string        `json:"recipient"`
	Remaining         time.Duration `json:"remaining"`
	SourceDomain      string        `json:"source_domain"`
	DestinationDomain string        `json:"destination_domain"`
	Item              content.Item  `json:"item"`
	IssuedAt          time.Time     `json:"issued_at"`
}
