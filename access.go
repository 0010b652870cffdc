package paywall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
)

// HasAccess reports whether actor may consume the content at now.
func (l *Ledger) HasAccess(ctx context.Context, contentID content.ID, actor string, now time.Time) (bool, error) {
	result, err := l.CheckAccess(ctx, contentID, actor, now)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// CheckAccess is HasAccess with the reason for the decision.
// Subscription content requires a grant expiring strictly after now.
// Ownership content requires actor to hold custody on this domain.
func (l *Ledger) CheckAccess(ctx context.Context, contentID content.ID, actor string, now time.Time) (*access.Result, error) {
	result, err := l.checkAccess(ctx, contentID, actor, now)
	if err != nil {
		return nil, err
	}

	l.plugins.EmitAccessChecked(ctx, result)
	return result, nil
}

func (l *Ledger) checkAccess(ctx context.Context, contentID content.ID, actor string, now time.Time) (*access.Result, error) {
	defer l.guard.read(ctx)()

	item, err := l.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	result := &access.Result{
		ContentID: contentID,
		Actor:     actor,
		Mode:      item.Mode(),
	}

	if item.IsSubscription {
		grant, err := l.store.GetGrant(ctx, contentID, actor)
		switch {
		case errors.Is(err, ErrGrantNotFound):
			result.Reason = "no subscription"
			return result, nil
		case err != nil:
			return nil, err
		}

		expiresAt := grant.ExpiresAt
		result.ExpiresAt = &expiresAt
		result.Allowed = grant.Active(now)
		if !result.Allowed {
			result.Reason = "subscription expired"
		}
		return result, nil
	}

	holder, err := l.holderOf(ctx, contentID)
	switch {
	case errors.Is(err, ErrCustodyAbsent):
		result.Reason = "custody not held on this domain"
		return result, nil
	case err != nil:
		return nil, err
	}

	result.Allowed = holder == actor
	if !result.Allowed {
		result.Reason = "not the holder"
	}
	return result, nil
}

// Grant returns the stored subscription grant for holder, expired or not.
func (l *Ledger) Grant(ctx context.Context, contentID content.ID, holder string) (*access.Grant, error) {
	defer l.guard.read(ctx)()
	return l.store.GetGrant(ctx, contentID, holder)
}

// grantSubscription starts a fresh subscription window for holder.
// Purchases reset the window rather than extending it.
func (l *Ledger) grantSubscription(ctx context.Context, item *content.Item, holder string, now time.Time) (*access.Grant, error) {
	return l.applyGrant(ctx, item.ID, holder, item.SubscriptionDuration, now)
}

// carryGrant moves the unexpired part of from's grant to to. When from has
// no live grant, to receives an already-expired grant.
func (l *Ledger) carryGrant(ctx context.Context, contentID content.ID, from, to string, now time.Time) error {
	remaining, _, err := l.captureGrant(ctx, contentID, from, now)
	if err != nil {
		return err
	}
	_, err = l.applyGrant(ctx, contentID, to, remaining, now)
	return err
}

// captureGrant deletes from's grant and returns the time it had left along
// with the deleted grant, which is nil when there was none.
func (l *Ledger) captureGrant(ctx context.Context, contentID content.ID, from string, now time.Time) (time.Duration, *access.Grant, error) {
	grant, err := l.store.GetGrant(ctx, contentID, from)
	switch {
	case errors.Is(err, ErrGrantNotFound):
		return 0, nil, nil
	case err != nil:
		return 0, nil, err
	}

	if err := l.store.DeleteGrant(ctx, contentID, from); err != nil {
		return 0, nil, fmt.Errorf("paywall: delete grant: %w", err)
	}
	return grant.Remaining(now), grant, nil
}

// applyGrant sets to's grant to expire remaining after now.
func (l *Ledger) applyGrant(ctx context.Context, contentID content.ID, to string, remaining time.Duration, now time.Time) (*access.Grant, error) {
	grant := &access.Grant{
		ContentID: contentID,
		Holder:    to,
		ExpiresAt: now.Add(remaining),
		UpdatedAt: l.now(),
	}
	if err := l.store.PutGrant(ctx, grant); err != nil {
		return nil, fmt.Errorf("paywall: store grant: %w", err)
	}
	return grant, nil
}

// grantSnapshot records the grants of some holders so a failed operation
// can put them back.
type grantSnapshot struct {
	contentID content.ID
	grants    map[string]*access.Grant
}

func (l *Ledger) snapshotGrants(ctx context.Context, contentID content.ID, holders ...string) (*grantSnapshot, error) {
	snap := &grantSnapshot{contentID: contentID, grants: make(map[string]*access.Grant, len(holders))}
	for _, h := range holders {
		grant, err := l.store.GetGrant(ctx, contentID, h)
		switch {
		case errors.Is(err, ErrGrantNotFound):
			snap.grants[h] = nil
		case err != nil:
			return nil, err
		default:
			snap.grants[h] = grant
		}
	}
	return snap, nil
}

func (l *Ledger) restoreGrants(ctx context.Context, snap *grantSnapshot) error {
	var errs []error
	for holder, grant := range snap.grants {
		if grant == nil {
			errs = append(errs, l.store.DeleteGrant(ctx, snap.contentID, holder))
			continue
		}
		errs = append(errs, l.store.PutGrant(ctx, grant))
	}
	return errors.Join(errs...)
}
