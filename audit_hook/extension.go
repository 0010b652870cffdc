// Package audithook bridges paywall ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/plugin"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnContentRegistered = (*Extension)(nil)
	_ plugin.OnPriceChanged      = (*Extension)(nil)
	_ plugin.OnRoyaltyPaid       = (*Extension)(nil)
	_ plugin.OnAccessChecked     = (*Extension)(nil)
	_ plugin.OnContentPurchased  = (*Extension)(nil)
	_ plugin.OnPurchaseFailed    = (*Extension)(nil)
	_ plugin.OnFeesWithdrawn     = (*Extension)(nil)
	_ plugin.OnCustodyDebited    = (*Extension)(nil)
	_ plugin.OnCustodyCredited   = (*Extension)(nil)
	_ plugin.OnCustodyReclaimed  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly. Callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnContentRegistered implements plugin.OnContentRegistered.
func (e *Extension) OnContentRegistered(ctx context.Context, item *content.Item) error {
	return e.record(ctx, ActionContentRegistered, SeverityInfo, OutcomeSuccess,
		ResourceContent, item.ID.String(), CategoryCatalog, nil,
		"creator", item.Creator,
		"mode", string(item.Mode()),
		"price", item.Price.String(),
		"royalty_percentage", item.RoyaltyPercentage,
	)
}

// OnPriceChanged implements plugin.OnPriceChanged.
func (e *Extension) OnPriceChanged(ctx context.Context, item *content.Item, oldPrice types.Money) error {
	return e.record(ctx, ActionPriceChanged, SeverityInfo, OutcomeSuccess,
		ResourceContent, item.ID.String(), CategoryCatalog, nil,
		"old_price", oldPrice.String(),
		"new_price", item.Price.String(),
	)
}

// OnRoyaltyPaid implements plugin.OnRoyaltyPaid.
func (e *Extension) OnRoyaltyPaid(ctx context.Context, quote *content.RoyaltyQuote, payer string) error {
	return e.record(ctx, ActionRoyaltyPaid, SeverityInfo, OutcomeSuccess,
		ResourceContent, quote.ContentID.String(), CategoryPayment, nil,
		"payer", payer,
		"receiver", quote.Receiver,
		"sale_price", quote.SalePrice.String(),
		"amount", quote.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Access hooks
// ──────────────────────────────────────────────────

// OnAccessChecked implements plugin.OnAccessChecked.
func (e *Extension) OnAccessChecked(ctx context.Context, result *access.Result) error {
	// Only denials are audited.
	if result.Allowed {
		return nil
	}
	return e.record(ctx, ActionAccessDenied, SeverityInfo, OutcomeFailure,
		ResourceAccess, result.ContentID.String(), CategoryAccess, nil,
		"actor", result.Actor,
		"mode", string(result.Mode),
		"reason", result.Reason,
	)
}

// ──────────────────────────────────────────────────
// Purchase hooks
// ──────────────────────────────────────────────────

// OnContentPurchased implements plugin.OnContentPurchased.
func (e *Extension) OnContentPurchased(ctx context.Context, p *sale.Purchase) error {
	kv := []any{
		"content_id", p.ContentID.String(),
		"buyer", p.Buyer,
		"creator", p.Creator,
		"mode", string(p.Mode),
		"price", p.Price.String(),
		"platform_fee", p.PlatformFee.String(),
		"creator_payment", p.CreatorPayment.String(),
	}
	if p.PreviousHolder != "" {
		kv = append(kv, "previous_holder", p.PreviousHolder)
	}
	if p.ExpiresAt != nil {
		kv = append(kv, "expires_at", p.ExpiresAt)
	}
	return e.record(ctx, ActionContentPurchased, SeverityInfo, OutcomeSuccess,
		ResourcePurchase, p.ID.String(), CategoryPayment, nil, kv...)
}

// OnPurchaseFailed implements plugin.OnPurchaseFailed.
func (e *Extension) OnPurchaseFailed(ctx context.Context, contentID content.ID, buyer string, err error) error {
	return e.record(ctx, ActionPurchaseFailed, SeverityWarning, OutcomeFailure,
		ResourceContent, contentID.String(), CategoryPayment, err,
		"buyer", buyer,
	)
}

// OnFeesWithdrawn implements plugin.OnFeesWithdrawn.
func (e *Extension) OnFeesWithdrawn(ctx context.Context, w *treasury.Withdrawal) error {
	return e.record(ctx, ActionFeesWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceWithdrawal, w.ID.String(), CategoryTreasury, nil,
		"caller", w.Caller,
		"treasury", w.Treasury,
		"amount", w.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Migration hooks
// ──────────────────────────────────────────────────

// OnCustodyDebited implements plugin.OnCustodyDebited.
func (e *Extension) OnCustodyDebited(ctx context.Context, r *migration.Receipt) error {
	return e.record(ctx, ActionCustodyDebited, SeverityInfo, OutcomeSuccess,
		ResourceReceipt, r.ID.String(), CategoryMigration, nil,
		"content_id", r.ContentID.String(),
		"holder", r.Holder,
		"destination", r.DestinationDomain,
		"remaining", r.Remaining.String(),
	)
}

// OnCustodyCredited implements plugin.OnCustodyCredited.
func (e *Extension) OnCustodyCredited(ctx context.Context, r *migration.Receipt) error {
	return e.record(ctx, ActionCustodyCredited, SeverityInfo, OutcomeSuccess,
		ResourceReceipt, r.ID.String(), CategoryMigration, nil,
		"content_id", r.ContentID.String(),
		"recipient", r.Recipient,
		"source", r.SourceDomain,
		"remaining", r.Remaining.String(),
	)
}

// OnCustodyReclaimed implements plugin.OnCustodyReclaimed. Reclaims are an
// operator override, so they are recorded as warnings.
func (e *Extension) OnCustodyReclaimed(ctx context.Context, r *migration.Receipt) error {
	return e.record(ctx, ActionCustodyReclaimed, SeverityWarning, OutcomeSuccess,
		ResourceReceipt, r.ID.String(), CategoryMigration, nil,
		"content_id", r.ContentID.String(),
		"holder", r.Holder,
		"destination", r.DestinationDomain,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
