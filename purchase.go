package paywall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

// PurchaseContent sells access to buyer. Subscription content gets a fresh
// window of SubscriptionDuration from now; ownership content moves custody
// from its current holder to buyer.
//
// The buyer must have approved the ledger account to spend the price. The
// full price is collected first, the access change is applied, and the
// creator is paid out; the platform fee stays on the ledger account. Any
// failure after collection reverts the access change and refunds the buyer.
func (l *Ledger) PurchaseContent(ctx context.Context, contentID content.ID, buyer string, now time.Time) (*sale.Purchase, error) {
	gctx, release, err := l.guard.enter(ctx)
	if err != nil {
		return nil, err
	}
	p, err := l.purchase(gctx, contentID, buyer, now)
	release()
	if err != nil {
		l.logger.Debug("purchase failed",
			"content_id", contentID,
			"buyer", buyer,
			"error", err,
		)
		l.plugins.EmitPurchaseFailed(ctx, contentID, buyer, err)
		return nil, err
	}

	l.plugins.EmitContentPurchased(ctx, p)
	return p, nil
}

func (l *Ledger) purchase(ctx context.Context, contentID content.ID, buyer string, now time.Time) (*sale.Purchase, error) {
	if buyer == "" {
		return nil, ValidationError{Field: "buyer", Message: "must not be empty"}
	}

	item, err := l.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	var holder string
	if !item.IsSubscription {
		if holder, err = l.holderOf(ctx, contentID); err != nil {
			return nil, err
		}
		if holder == buyer {
			return nil, ValidationError{Field: "buyer", Message: "already holds this content"}
		}
	}

	balance, err := l.token.BalanceOf(ctx, buyer)
	if err != nil {
		return nil, fmt.Errorf("%w: balance of %s: %w", ErrPaymentFailed, buyer, err)
	}
	if balance.Amount < item.Price.Amount {
		return nil, fmt.Errorf("%w: %s has %s, price is %s", ErrInsufficientFunds, buyer, balance, item.Price)
	}

	split := sale.Compute(item.Price, l.platformFee)

	if err := l.token.TransferFrom(ctx, l.account, buyer, l.account, split.Price); err != nil {
		return nil, fmt.Errorf("%w: collect from %s: %w", ErrPaymentFailed, buyer, err)
	}

	p := &sale.Purchase{
		Entity:         types.NewEntity(),
		ID:             id.NewPurchaseID(),
		ContentID:      contentID,
		Buyer:          buyer,
		Creator:        item.Creator,
		PreviousHolder: holder,
		Mode:           item.Mode(),
		Price:          split.Price,
		PlatformFee:    split.PlatformFee,
		CreatorPayment: split.CreatorPayment,
		PurchasedAt:    now,
	}

	revert, err := l.applyPurchase(ctx, item, p, now)
	if err != nil {
		return nil, l.compensate(ctx, p, err, nil)
	}

	if split.CreatorPayment.IsPositive() {
		if err := l.token.Transfer(ctx, l.account, item.Creator, split.CreatorPayment); err != nil {
			return nil, l.compensate(ctx, p, fmt.Errorf("%w: pay creator %s: %w", ErrPaymentFailed, item.Creator, err), revert)
		}
	}

	if err := l.store.CreatePurchase(ctx, p); err != nil {
		l.logger.Error("failed to record purchase",
			"purchase_id", p.ID.String(),
			"content_id", contentID,
			"error", err,
		)
	}

	return p, nil
}

// applyPurchase performs the access change of a purchase and returns the
// function that undoes it.
func (l *Ledger) applyPurchase(ctx context.Context, item *content.Item, p *sale.Purchase, now time.Time) (func() error, error) {
	if item.IsSubscription {
		snap, err := l.snapshotGrants(ctx, item.ID, p.Buyer)
		if err != nil {
			return nil, err
		}
		grant, err := l.grantSubscription(ctx, item, p.Buyer, now)
		if err != nil {
			return nil, err
		}
		expiresAt := grant.ExpiresAt
		p.ExpiresAt = &expiresAt
		return func() error { return l.restoreGrants(ctx, snap) }, nil
	}

	snap, err := l.snapshotGrants(ctx, item.ID, p.PreviousHolder, p.Buyer)
	if err != nil {
		return nil, err
	}
	if err := l.carryGrant(ctx, item.ID, p.PreviousHolder, p.Buyer, now); err != nil {
		return nil, errors.Join(err, l.restoreGrants(ctx, snap))
	}
	if err := l.custody.Transfer(ctx, item.ID, p.PreviousHolder, p.Buyer); err != nil {
		return nil, errors.Join(fmt.Errorf("paywall: transfer custody of %d: %w", item.ID, err), l.restoreGrants(ctx, snap))
	}

	return func() error {
		return errors.Join(
			l.custody.Transfer(ctx, item.ID, p.Buyer, p.PreviousHolder),
			l.restoreGrants(ctx, snap),
		)
	}, nil
}

// compensate undoes a partially applied purchase and refunds the buyer.
// Failures while compensating are joined onto cause and logged, since they
// leave balances or access inconsistent.
func (l *Ledger) compensate(ctx context.Context, p *sale.Purchase, cause error, revert func() error) error {
	var errs []error
	if revert != nil {
		if err := revert(); err != nil {
			errs = append(errs, fmt.Errorf("revert access: %w", err))
		}
	}
	if err := l.token.Transfer(ctx, l.account, p.Buyer, p.Price); err != nil {
		errs = append(errs, fmt.Errorf("refund %s: %w", p.Buyer, err))
	}

	if len(errs) == 0 {
		return cause
	}

	err := errors.Join(append([]error{cause}, errs...)...)
	l.logger.Error("purchase compensation failed",
		"content_id", p.ContentID,
		"buyer", p.Buyer,
		"error", err,
	)
	return err
}

// PlatformFees returns the fees accumulated on the ledger account.
func (l *Ledger) PlatformFees(ctx context.Context) (types.Money, error) {
	defer l.guard.read(ctx)()
	return l.token.BalanceOf(ctx, l.account)
}

// WithdrawPlatformFees sweeps the accumulated fees to the treasury.
// Only the configured owner may call it.
func (l *Ledger) WithdrawPlatformFees(ctx context.Context, caller string) (*treasury.Withdrawal, error) {
	w, err := guarded(ctx, l.guard, func(ctx context.Context) (*treasury.Withdrawal, error) {
		return l.withdraw(ctx, caller)
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitFeesWithdrawn(ctx, w)
	return w, nil
}

func (l *Ledger) withdraw(ctx context.Context, caller string) (*treasury.Withdrawal, error) {
	if caller == "" || caller != l.owner {
		return nil, fmt.Errorf("%w: %q is not the owner", ErrUnauthorized, caller)
	}

	balance, err := l.token.BalanceOf(ctx, l.account)
	if err != nil {
		return nil, fmt.Errorf("%w: fee balance: %w", ErrPaymentFailed, err)
	}
	if balance.IsPositive() {
		if err := l.token.Transfer(ctx, l.account, l.treasury, balance); err != nil {
			return nil, fmt.Errorf("%w: withdraw to %s: %w", ErrPaymentFailed, l.treasury, err)
		}
	}

	w := &treasury.Withdrawal{
		Entity:      types.NewEntity(),
		ID:          id.NewWithdrawalID(),
		Caller:      caller,
		Treasury:    l.treasury,
		Amount:      balance,
		WithdrawnAt: l.now(),
	}
	if err := l.store.CreateWithdrawal(ctx, w); err != nil {
		l.logger.Error("failed to record withdrawal",
			"withdrawal_id", w.ID.String(),
			"amount", balance.String(),
			"error", err,
		)
	}
	return w, nil
}

// Purchases lists recorded purchases.
func (l *Ledger) Purchases(ctx context.Context, opts sale.ListOpts) ([]*sale.Purchase, error) {
	defer l.guard.read(ctx)()
	return l.store.ListPurchases(ctx, opts)
}

// Withdrawals lists recorded fee withdrawals.
func (l *Ledger) Withdrawals(ctx context.Context, opts treasury.ListOpts) ([]*treasury.Withdrawal, error) {
	defer l.guard.read(ctx)()
	return l.store.ListWithdrawals(ctx, opts)
}
