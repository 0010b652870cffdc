package paywall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/custody"
	"github.com/xraph/paywall/types"
)

// RegisterRequest describes a new content item.
type RegisterRequest struct {
	Creator              string
	ContentHash          string
	Price                types.Money
	RoyaltyPercentage    uint8
	IsSubscription       bool
	SubscriptionDuration time.Duration
}

// Register stores a new content item and mints its custody token to the
// creator.
func (l *Ledger) Register(ctx context.Context, req RegisterRequest) (*content.Item, error) {
	price, err := l.validatePrice("price", req.Price)
	if err != nil {
		return nil, err
	}
	switch {
	case req.Creator == "":
		return nil, ValidationError{Field: "creator", Message: "must not be empty"}
	case req.ContentHash == "":
		return nil, ValidationError{Field: "content_hash", Message: "must not be empty"}
	case req.RoyaltyPercentage > 100:
		return nil, ValidationError{Field: "royalty_percentage", Message: fmt.Sprintf("%d exceeds 100", req.RoyaltyPercentage)}
	case req.IsSubscription && req.SubscriptionDuration <= 0:
		return nil, ValidationError{Field: "subscription_duration", Message: "must be positive for subscription content"}
	}

	item, err := guarded(ctx, l.guard, func(ctx context.Context) (*content.Item, error) {
		return l.register(ctx, req, price)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("content registered",
		"content_id", item.ID,
		"creator", item.Creator,
		"mode", item.Mode(),
	)
	l.plugins.EmitContentRegistered(ctx, item)

	return item, nil
}

func (l *Ledger) register(ctx context.Context, req RegisterRequest, price types.Money) (*content.Item, error) {
	nextID, err := l.store.NextContentID(ctx, l.idSpace)
	if err != nil {
		return nil, fmt.Errorf("paywall: allocate content id: %w", err)
	}
	if !l.idSpace.Contains(nextID) {
		return nil, fmt.Errorf("%w: next id %d", ErrIDSpaceExhausted, nextID)
	}

	item := &content.Item{
		Entity:               types.NewEntity(),
		ID:                   nextID,
		Creator:              req.Creator,
		ContentHash:          req.ContentHash,
		Price:                price,
		RoyaltyPercentage:    req.RoyaltyPercentage,
		IsSubscription:       req.IsSubscription,
		SubscriptionDuration: req.SubscriptionDuration,
		Origin:               l.domain,
	}
	if !item.IsSubscription {
		item.SubscriptionDuration = 0
	}

	if err := l.custody.Mint(ctx, item.ID, item.Creator); err != nil {
		return nil, fmt.Errorf("paywall: mint custody for %d: %w", item.ID, err)
	}
	if err := l.store.CreateContent(ctx, item); err != nil {
		if burnErr := l.custody.Burn(ctx, item.ID); burnErr != nil {
			err = errors.Join(err, fmt.Errorf("burn custody: %w", burnErr))
			l.logger.Error("register rollback failed",
				"content_id", item.ID,
				"error", err,
			)
		}
		return nil, fmt.Errorf("paywall: store content: %w", err)
	}

	return item, nil
}

// SetPrice changes the price of an item. Only the creator may do so.
func (l *Ledger) SetPrice(ctx context.Context, contentID content.ID, newPrice types.Money, requester string) error {
	var oldPrice types.Money
	item, err := guarded(ctx, l.guard, func(ctx context.Context) (*content.Item, error) {
		item, old, err := l.setPrice(ctx, contentID, newPrice, requester)
		oldPrice = old
		return item, err
	})
	if err != nil {
		return err
	}

	l.plugins.EmitPriceChanged(ctx, item, oldPrice)
	return nil
}

func (l *Ledger) setPrice(ctx context.Context, contentID content.ID, newPrice types.Money, requester string) (*content.Item, types.Money, error) {
	item, err := l.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, types.Money{}, err
	}
	if requester != item.Creator {
		return nil, types.Money{}, fmt.Errorf("%w: only the creator may set the price of %d", ErrUnauthorized, contentID)
	}

	price, err := l.validatePrice("price", newPrice)
	if err != nil {
		return nil, types.Money{}, err
	}
	if err := l.store.UpdateContentPrice(ctx, contentID, price); err != nil {
		return nil, types.Money{}, fmt.Errorf("paywall: update price: %w", err)
	}

	oldPrice := item.Price
	item.Price = price
	item.Touch()
	return item, oldPrice, nil
}

// Describe returns a content item.
func (l *Ledger) Describe(ctx context.Context, contentID content.ID) (*content.Item, error) {
	defer l.guard.read(ctx)()
	return l.store.GetContent(ctx, contentID)
}

// ListContent lists registered items in id order.
func (l *Ledger) ListContent(ctx context.Context, opts content.ListOpts) ([]*content.Item, error) {
	defer l.guard.read(ctx)()
	return l.store.ListContent(ctx, opts)
}

// RoyaltyQuote returns the creator and the royalty owed on a resale at
// salePrice. Royalties are advisory; the ledger never collects them.
func (l *Ledger) RoyaltyQuote(ctx context.Context, contentID content.ID, salePrice types.Money) (*content.RoyaltyQuote, error) {
	defer l.guard.read(ctx)()

	item, err := l.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	if salePrice.Denom == "" {
		salePrice.Denom = item.Price.Denom
	}
	switch {
	case salePrice.IsNegative():
		return nil, ValidationError{Field: "sale_price", Message: "must not be negative"}
	case salePrice.Denom != item.Price.Denom:
		return nil, ValidationError{Field: "sale_price", Message: fmt.Sprintf("denomination %q does not match %q", salePrice.Denom, item.Price.Denom)}
	}

	return item.Royalty(salePrice), nil
}

// ReportRoyaltyPaid records that payer settled the royalty for a resale at
// salePrice, for callers that run their own resale flow.
func (l *Ledger) ReportRoyaltyPaid(ctx context.Context, contentID content.ID, payer string, salePrice types.Money) (*content.RoyaltyQuote, error) {
	quote, err := l.RoyaltyQuote(ctx, contentID, salePrice)
	if err != nil {
		return nil, err
	}

	l.plugins.EmitRoyaltyPaid(ctx, quote, payer)
	return quote, nil
}

// validatePrice checks a price is positive and in the token's denomination.
// An empty denomination is taken to mean the token's.
func (l *Ledger) validatePrice(field string, price types.Money) (types.Money, error) {
	if price.Denom == "" {
		price = types.New(price.Amount, l.token.Denom())
	}
	switch {
	case !price.IsPositive():
		return price, ValidationError{Field: field, Message: "must be positive"}
	case price.Denom != l.token.Denom():
		return price, ValidationError{Field: field, Message: fmt.Sprintf("denomination %q does not match token %q", price.Denom, l.token.Denom())}
	}
	return price, nil
}

// holderOf maps custody errors onto ledger errors.
func (l *Ledger) holderOf(ctx context.Context, contentID content.ID) (string, error) {
	holder, err := l.custody.CurrentHolder(ctx, contentID)
	switch {
	case errors.Is(err, custody.ErrNotMinted):
		return "", fmt.Errorf("%w: %d", ErrCustodyAbsent, contentID)
	case err != nil:
		return "", fmt.Errorf("paywall: custody lookup for %d: %w", contentID, err)
	}
	return holder, nil
}
