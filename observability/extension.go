// Package observability provides a metrics extension for the paywall ledger
// that records event counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/plugin"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnContentRegistered = (*MetricsExtension)(nil)
	_ plugin.OnPriceChanged      = (*MetricsExtension)(nil)
	_ plugin.OnRoyaltyPaid       = (*MetricsExtension)(nil)
	_ plugin.OnAccessChecked     = (*MetricsExtension)(nil)
	_ plugin.OnContentPurchased  = (*MetricsExtension)(nil)
	_ plugin.OnPurchaseFailed    = (*MetricsExtension)(nil)
	_ plugin.OnFeesWithdrawn     = (*MetricsExtension)(nil)
	_ plugin.OnCustodyDebited    = (*MetricsExtension)(nil)
	_ plugin.OnCustodyCredited   = (*MetricsExtension)(nil)
	_ plugin.OnCustodyReclaimed  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide event metrics.
// Register it as a ledger plugin to track sales and migrations.
type MetricsExtension struct {
	factory MetricFactory

	// Registry metrics
	ContentRegistered Counter
	PriceChanged      Counter
	RoyaltiesReported Counter

	// Access metrics
	AccessChecks  Counter
	AccessDenied  Counter
	GrantLifetime Histogram

	// Purchase metrics
	Purchases              Counter
	SubscriptionPurchases  Counter
	PurchasesFailed        Counter
	PurchaseVolume         Histogram
	PlatformFeesCollected  Counter
	CreatorPaymentsSettled Counter
	FeesWithdrawn          Counter

	// Migration metrics
	CustodyDebited      Counter
	CustodyCredited     Counter
	CustodyReclaimed    Counter
	MigratedRemainingMs Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory standalone.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		ContentRegistered: factory.Counter("paywall.content.registered"),
		PriceChanged:      factory.Counter("paywall.content.price_changed"),
		RoyaltiesReported: factory.Counter("paywall.royalty.reported"),

		AccessChecks:  factory.Counter("paywall.access.checks"),
		AccessDenied:  factory.Counter("paywall.access.denied"),
		GrantLifetime: factory.Histogram("paywall.access.grant_remaining_seconds"),

		Purchases:              factory.Counter("paywall.purchase.completed"),
		SubscriptionPurchases:  factory.Counter("paywall.purchase.subscription"),
		PurchasesFailed:        factory.Counter("paywall.purchase.failed"),
		PurchaseVolume:         factory.Histogram("paywall.purchase.price"),
		PlatformFeesCollected:  factory.Counter("paywall.fees.collected"),
		CreatorPaymentsSettled: factory.Counter("paywall.creator.paid"),
		FeesWithdrawn:          factory.Counter("paywall.fees.withdrawn"),

		CustodyDebited:      factory.Counter("paywall.custody.debited"),
		CustodyCredited:     factory.Counter("paywall.custody.credited"),
		CustodyReclaimed:    factory.Counter("paywall.custody.reclaimed"),
		MigratedRemainingMs: factory.Histogram("paywall.custody.remaining_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnContentRegistered implements plugin.OnContentRegistered.
func (m *MetricsExtension) OnContentRegistered(_ context.Context, _ *content.Item) error {
	m.ContentRegistered.Inc()
	return nil
}

// OnPriceChanged implements plugin.OnPriceChanged.
func (m *MetricsExtension) OnPriceChanged(_ context.Context, _ *content.Item, _ types.Money) error {
	m.PriceChanged.Inc()
	return nil
}

// OnRoyaltyPaid implements plugin.OnRoyaltyPaid.
func (m *MetricsExtension) OnRoyaltyPaid(_ context.Context, _ *content.RoyaltyQuote, _ string) error {
	m.RoyaltiesReported.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Access hooks
// ──────────────────────────────────────────────────

// OnAccessChecked implements plugin.OnAccessChecked.
func (m *MetricsExtension) OnAccessChecked(_ context.Context, result *access.Result) error {
	m.AccessChecks.Inc()
	if !result.Allowed {
		m.AccessDenied.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Purchase hooks
// ──────────────────────────────────────────────────

// OnContentPurchased implements plugin.OnContentPurchased.
func (m *MetricsExtension) OnContentPurchased(_ context.Context, p *sale.Purchase) error {
	m.Purchases.Inc()
	if p.Mode == content.ModeSubscription {
		m.SubscriptionPurchases.Inc()
		if p.ExpiresAt != nil {
			m.GrantLifetime.Observe(p.ExpiresAt.Sub(p.PurchasedAt).Seconds())
		}
	}
	m.PurchaseVolume.Observe(float64(p.Price.Amount))
	m.PlatformFeesCollected.Add(float64(p.PlatformFee.Amount))
	m.CreatorPaymentsSettled.Add(float64(p.CreatorPayment.Amount))
	return nil
}

// OnPurchaseFailed implements plugin.OnPurchaseFailed.
func (m *MetricsExtension) OnPurchaseFailed(_ context.Context, _ content.ID, _ string, _ error) error {
	m.PurchasesFailed.Inc()
	return nil
}

// OnFeesWithdrawn implements plugin.OnFeesWithdrawn.
func (m *MetricsExtension) OnFeesWithdrawn(_ context.Context, w *treasury.Withdrawal) error {
	m.FeesWithdrawn.Add(float64(w.Amount.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Migration hooks
// ──────────────────────────────────────────────────

// OnCustodyDebited implements plugin.OnCustodyDebited.
func (m *MetricsExtension) OnCustodyDebited(_ context.Context, r *migration.Receipt) error {
	m.CustodyDebited.Inc()
	m.MigratedRemainingMs.Observe(float64(r.Remaining.Milliseconds()))
	return nil
}

// OnCustodyCredited implements plugin.OnCustodyCredited.
func (m *MetricsExtension) OnCustodyCredited(_ context.Context, _ *migration.Receipt) error {
	m.CustodyCredited.Inc()
	return nil
}

// OnCustodyReclaimed implements plugin.OnCustodyReclaimed.
func (m *MetricsExtension) OnCustodyReclaimed(_ context.Context, _ *migration.Receipt) error {
	m.CustodyReclaimed.Inc()
	return nil
}
