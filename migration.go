package paywall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/custody"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/transport"
	"github.com/xraph/paywall/types"
)

var _ transport.Sink = (*Ledger)(nil)

// Debit releases custody of an item for migration to another domain and
// returns the receipt the destination needs to credit it. For subscription
// content the holder's unexpired time is captured and the local grant is
// removed.
func (l *Ledger) Debit(ctx context.Context, req migration.DebitRequest, now time.Time) (*migration.Receipt, error) {
	r, err := guarded(ctx, l.guard, func(ctx context.Context) (*migration.Receipt, error) {
		r, _, err := l.debit(ctx, req, now)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitCustodyDebited(ctx, r)
	return r, nil
}

// debit returns the receipt and the holder's grant as it was before capture.
func (l *Ledger) debit(ctx context.Context, req migration.DebitRequest, now time.Time) (*migration.Receipt, *access.Grant, error) {
	switch {
	case req.Holder == "":
		return nil, nil, ValidationError{Field: "holder", Message: "must not be empty"}
	case req.Recipient == "":
		return nil, nil, ValidationError{Field: "recipient", Message: "must not be empty"}
	case req.Destination == "":
		return nil, nil, ValidationError{Field: "destination", Message: "must not be empty"}
	case req.Destination == l.domain:
		return nil, nil, ValidationError{Field: "destination", Message: "must differ from the source domain"}
	}

	item, err := l.store.GetContent(ctx, req.ContentID)
	if err != nil {
		return nil, nil, err
	}

	holder, err := l.holderOf(ctx, req.ContentID)
	if err != nil {
		return nil, nil, err
	}
	allowed, err := l.custody.IsApprovedOrHolder(ctx, req.ContentID, req.Caller)
	if err != nil {
		return nil, nil, fmt.Errorf("paywall: custody approval for %d: %w", req.ContentID, err)
	}
	if !allowed {
		return nil, nil, fmt.Errorf("%w: %q may not move %d", ErrUnauthorized, req.Caller, req.ContentID)
	}
	if holder != req.Holder {
		return nil, nil, fmt.Errorf("%w: %q does not hold %d", ErrUnauthorized, req.Holder, req.ContentID)
	}

	var (
		remaining time.Duration
		captured  *access.Grant
	)
	if item.IsSubscription {
		if remaining, captured, err = l.captureGrant(ctx, item.ID, holder, now); err != nil {
			return nil, nil, err
		}
	}

	if err := l.custody.Burn(ctx, item.ID); err != nil {
		err = fmt.Errorf("paywall: burn custody of %d: %w", item.ID, err)
		if captured != nil {
			err = errors.Join(err, l.store.PutGrant(ctx, captured))
		}
		return nil, nil, err
	}

	r := &migration.Receipt{
		ID:                id.NewReceiptID(),
		ContentID:         item.ID,
		Holder:            holder,
		Recipient:         req.Recipient,
		Remaining:         remaining,
		SourceDomain:      l.domain,
		DestinationDomain: req.Destination,
		Item:              *item,
		IssuedAt:          now,
	}

	l.logger.Debug("custody debited",
		"content_id", item.ID,
		"holder", holder,
		"destination", req.Destination,
		"remaining", remaining,
	)
	return r, captured, nil
}

// Credit applies a receipt issued by another domain: it mints custody to
// the recipient and, when time remained, gives the recipient a grant of
// that length starting at now. Items unknown on this domain are imported
// from the receipt's snapshot.
func (l *Ledger) Credit(ctx context.Context, r *migration.Receipt, now time.Time) error {
	_, err := guarded(ctx, l.guard, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, l.credit(ctx, r, now)
	})
	if err != nil {
		return err
	}

	l.plugins.EmitCustodyCredited(ctx, r)
	return nil
}

func (l *Ledger) credit(ctx context.Context, r *migration.Receipt, now time.Time) error {
	if err := migration.Validate(r); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationReceiptInvalid, err)
	}
	if r.DestinationDomain != l.domain {
		return fmt.Errorf("%w: addressed to %q, this is %q", ErrMigrationReceiptInvalid, r.DestinationDomain, l.domain)
	}
	if r.SourceDomain == l.domain || !l.trusted[r.SourceDomain] {
		return fmt.Errorf("%w: source %q is not trusted", ErrMigrationReceiptInvalid, r.SourceDomain)
	}
	if err := checkRemaining(r); err != nil {
		return err
	}
	if r.Item.Price.Denom != l.token.Denom() {
		return fmt.Errorf("%w: priced in %q, token is %q", ErrMigrationReceiptInvalid, r.Item.Price.Denom, l.token.Denom())
	}

	if l.receiptDedup {
		consumed, err := l.store.ReceiptConsumed(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("paywall: receipt lookup: %w", err)
		}
		if consumed {
			return fmt.Errorf("%w: receipt %s already credited", ErrMigrationReceiptInvalid, r.ID)
		}
	}

	if _, err := l.custody.CurrentHolder(ctx, r.ContentID); err == nil {
		return fmt.Errorf("%w: custody of %d already held on %q", ErrMigrationReceiptInvalid, r.ContentID, l.domain)
	} else if !errors.Is(err, custody.ErrNotMinted) {
		return fmt.Errorf("paywall: custody lookup for %d: %w", r.ContentID, err)
	}

	if err := l.importItem(ctx, r); err != nil {
		return err
	}

	snap, err := l.snapshotGrants(ctx, r.ContentID, r.Recipient)
	if err != nil {
		return err
	}

	if err := l.custody.Mint(ctx, r.ContentID, r.Recipient); err != nil {
		return fmt.Errorf("paywall: mint custody of %d: %w", r.ContentID, err)
	}
	undo := func(cause error) error {
		return errors.Join(cause, l.custody.Burn(ctx, r.ContentID), l.restoreGrants(ctx, snap))
	}

	if r.Remaining > 0 {
		if _, err := l.applyGrant(ctx, r.ContentID, r.Recipient, r.Remaining, now); err != nil {
			return undo(err)
		}
	}

	if l.receiptDedup {
		if err := l.store.ConsumeReceipt(ctx, r.ID, l.now()); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				err = fmt.Errorf("%w: receipt %s already credited", ErrMigrationReceiptInvalid, r.ID)
			}
			return undo(err)
		}
	}

	l.logger.Debug("custody credited",
		"content_id", r.ContentID,
		"recipient", r.Recipient,
		"source", r.SourceDomain,
		"remaining", r.Remaining,
	)
	return nil
}

// checkRemaining bounds the carried time by what the item can grant: a
// subscription window never exceeds one purchase, and ownership carries none.
func checkRemaining(r *migration.Receipt) error {
	switch {
	case r.Remaining < 0:
		return fmt.Errorf("%w: negative remaining time", ErrMigrationReceiptInvalid)
	case !r.Item.IsSubscription && r.Remaining != 0:
		return fmt.Errorf("%w: ownership item %d carries %v of subscription time", ErrMigrationReceiptInvalid, r.ContentID, r.Remaining)
	case r.Remaining > r.Item.SubscriptionDuration:
		return fmt.Errorf("%w: remaining %v exceeds the %v subscription window", ErrMigrationReceiptInvalid, r.Remaining, r.Item.SubscriptionDuration)
	}
	return nil
}

// importItem checks the receipt's snapshot against the local item, storing
// the snapshot when the item has never been seen here.
func (l *Ledger) importItem(ctx context.Context, r *migration.Receipt) error {
	existing, err := l.store.GetContent(ctx, r.ContentID)
	switch {
	case err == nil:
		if !existing.SameContent(&r.Item) {
			return fmt.Errorf("%w: content %d differs from the local item", ErrMigrationReceiptInvalid, r.ContentID)
		}
		return nil
	case !errors.Is(err, ErrContentNotFound):
		return err
	}

	item := r.Item
	item.Entity = types.NewEntity()
	if item.Origin == "" {
		item.Origin = r.SourceDomain
	}
	if err := l.store.CreateContent(ctx, &item); err != nil {
		return fmt.Errorf("paywall: import content %d: %w", item.ID, err)
	}
	return nil
}

// Migrate debits an item and sends the receipt through the configured
// transport. If the transport fails the debit is rolled back: custody
// returns to the holder along with any captured grant.
//
// The send happens outside the ledger guard so a synchronous transport may
// deliver into another ledger that is itself migrating toward this one.
func (l *Ledger) Migrate(ctx context.Context, req migration.DebitRequest, now time.Time) (*migration.Receipt, error) {
	if l.transport == nil {
		return nil, ErrNoTransport
	}

	gctx, release, err := l.guard.enter(ctx)
	if err != nil {
		return nil, err
	}
	r, captured, err := l.debit(gctx, req, now)
	release()
	if err != nil {
		return nil, err
	}

	if sendErr := l.transport.Send(ctx, r); sendErr != nil {
		err := fmt.Errorf("%w: %w", ErrTransportFailed, sendErr)
		if rbErr := l.rollbackDebit(context.WithoutCancel(ctx), r, captured); rbErr != nil {
			err = errors.Join(err, rbErr)
			l.logger.Error("migration rollback failed",
				"content_id", r.ContentID,
				"receipt_id", r.ID.String(),
				"error", err,
			)
		}
		return nil, err
	}

	l.plugins.EmitCustodyDebited(ctx, r)
	return r, nil
}

func (l *Ledger) rollbackDebit(ctx context.Context, r *migration.Receipt, captured *access.Grant) error {
	ctx, release, err := l.guard.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := l.custody.Mint(ctx, r.ContentID, r.Holder); err != nil {
		return fmt.Errorf("paywall: re-mint custody of %d: %w", r.ContentID, err)
	}
	if captured != nil {
		if err := l.store.PutGrant(ctx, captured); err != nil {
			return fmt.Errorf("paywall: restore grant: %w", err)
		}
	}
	return nil
}

// Reclaim restores custody on the source domain for a receipt it issued
// that was never credited, typically because the destination rejected it.
// The holder gets back whatever subscription time the receipt carried,
// less the time elapsed since the debit. Each receipt can be reclaimed
// once. Only the owner may reclaim, and only after confirming the
// destination did not credit the receipt.
func (l *Ledger) Reclaim(ctx context.Context, r *migration.Receipt, caller string, now time.Time) error {
	if l.owner == "" || caller != l.owner {
		return fmt.Errorf("%w: %q may not reclaim receipts", ErrUnauthorized, caller)
	}

	_, err := guarded(ctx, l.guard, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, l.reclaim(ctx, r, now)
	})
	if err != nil {
		return err
	}

	l.plugins.EmitCustodyReclaimed(ctx, r)
	return nil
}

func (l *Ledger) reclaim(ctx context.Context, r *migration.Receipt, now time.Time) error {
	if err := migration.Validate(r); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationReceiptInvalid, err)
	}
	if r.SourceDomain != l.domain {
		return fmt.Errorf("%w: issued by %q, this is %q", ErrMigrationReceiptInvalid, r.SourceDomain, l.domain)
	}
	if r.Holder == "" {
		return fmt.Errorf("%w: no holder to restore", ErrMigrationReceiptInvalid)
	}
	if err := checkRemaining(r); err != nil {
		return err
	}

	consumed, err := l.store.ReceiptConsumed(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("paywall: receipt lookup: %w", err)
	}
	if consumed {
		return fmt.Errorf("%w: receipt %s already reclaimed", ErrMigrationReceiptInvalid, r.ID)
	}

	item, err := l.store.GetContent(ctx, r.ContentID)
	if err != nil {
		return err
	}
	if !item.SameContent(&r.Item) {
		return fmt.Errorf("%w: content %d differs from the local item", ErrMigrationReceiptInvalid, r.ContentID)
	}

	if _, err := l.custody.CurrentHolder(ctx, r.ContentID); err == nil {
		return fmt.Errorf("%w: custody of %d is held on %q", ErrMigrationReceiptInvalid, r.ContentID, l.domain)
	} else if !errors.Is(err, custody.ErrNotMinted) {
		return fmt.Errorf("paywall: custody lookup for %d: %w", r.ContentID, err)
	}

	snap, err := l.snapshotGrants(ctx, r.ContentID, r.Holder)
	if err != nil {
		return err
	}

	if err := l.custody.Mint(ctx, r.ContentID, r.Holder); err != nil {
		return fmt.Errorf("paywall: re-mint custody of %d: %w", r.ContentID, err)
	}
	undo := func(cause error) error {
		return errors.Join(cause, l.custody.Burn(ctx, r.ContentID), l.restoreGrants(ctx, snap))
	}

	if left := r.IssuedAt.Add(r.Remaining).Sub(now); r.Remaining > 0 && left > 0 {
		if _, err := l.applyGrant(ctx, r.ContentID, r.Holder, left, now); err != nil {
			return undo(err)
		}
	}

	if err := l.store.ConsumeReceipt(ctx, r.ID, l.now()); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			err = fmt.Errorf("%w: receipt %s already reclaimed", ErrMigrationReceiptInvalid, r.ID)
		}
		return undo(err)
	}

	l.logger.Info("custody reclaimed",
		"content_id", r.ContentID,
		"holder", r.Holder,
		"receipt_id", r.ID.String(),
		"destination", r.DestinationDomain,
	)
	return nil
}

// Deliver implements transport.Sink, crediting receipts at the ledger's
// current time. Rejections are marked final so consumers stop redelivering.
func (l *Ledger) Deliver(ctx context.Context, r *migration.Receipt) error {
	err := l.Credit(ctx, r, l.now())
	if err != nil && IsPermanent(err) {
		return transport.Rejected(err)
	}
	return err
}
