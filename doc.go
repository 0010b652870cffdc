// Package paywall provides a content-monetization ledger for Go applications.
//
// Creators register content items. Consumers either buy permanent ownership,
// represented by a custody token that can move between execution domains,
// or time-boxed subscription access. Every sale is split between the
// platform and the creator in integer token units.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/paywall"
//	    "github.com/xraph/paywall/payment"
//	    "github.com/xraph/paywall/store/memory"
//	)
//
//	token := payment.NewMemoryToken("usdc")
//	l, err := paywall.New(memory.New(), token,
//	    paywall.WithOwner("platform"),
//	    paywall.WithPlatformFee(5),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	item, err := l.Register(ctx, paywall.RegisterRequest{
//	    Creator:           "alice",
//	    ContentHash:       "ipfs://Qm...",
//	    Price:             paywall.NewMoney(100, "usdc"),
//	    RoyaltyPercentage: 10,
//	})
//
//	// The buyer lets the ledger account pull the price.
//	token.Approve("bob", l.Account(), paywall.NewMoney(100, "usdc"))
//	_, err = l.PurchaseContent(ctx, item.ID, "bob", time.Now())
//
// # Access
//
// Ownership items grant access to whoever holds custody on this domain.
// Subscription items grant access while the holder's grant expires strictly
// after the supplied time. A purchase resets the window to now plus the
// item's duration; it never stacks.
//
// # Migration
//
// Debit burns local custody and returns a receipt carrying any unexpired
// subscription time. Credit on the destination ledger re-mints custody and
// restores the time. Migrate combines Debit with a transport.Transport and
// rolls back if the send fails. Credited receipts are recorded so a replay
// is rejected with ErrMigrationReceiptInvalid.
//
// # Concurrency
//
// Mutations on a Ledger are serialized. A collaborator or plugin calling
// back into the ledger with the context it was given is rejected with
// ErrReentrancyRejected instead of deadlocking. Queries wait for any
// in-flight mutation so they never observe partial state.
package paywall
