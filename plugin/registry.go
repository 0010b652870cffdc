package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/paywall/access"
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/migration"
	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/treasury"
	"github.com/xraph/paywall/types"
)

// DefaultTimeout bounds each hook invocation.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so emitting an event never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration
	hookCtx func(context.Context) context.Context

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onContentRegistered []OnContentRegistered
	onPriceChanged      []OnPriceChanged
	onRoyaltyPaid       []OnRoyaltyPaid
	onAccessChecked     []OnAccessChecked
	onContentPurchased  []OnContentPurchased
	onPurchaseFailed    []OnPurchaseFailed
	onFeesWithdrawn     []OnFeesWithdrawn
	onCustodyDebited    []OnCustodyDebited
	onCustodyCredited   []OnCustodyCredited
	onCustodyReclaimed  []OnCustodyReclaimed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// WithContextFunc sets how the context handed to hooks is derived from the
// emitting call's context.
func (r *Registry) WithContextFunc(fn func(context.Context) context.Context) *Registry {
	r.hookCtx = fn
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var implemented []string

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		implemented = append(implemented, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		implemented = append(implemented, "OnShutdown")
	}
	if v, ok := p.(OnContentRegistered); ok {
		r.onContentRegistered = append(r.onContentRegistered, v)
		implemented = append(implemented, "OnContentRegistered")
	}
	if v, ok := p.(OnPriceChanged); ok {
		r.onPriceChanged = append(r.onPriceChanged, v)
		implemented = append(implemented, "OnPriceChanged")
	}
	if v, ok := p.(OnRoyaltyPaid); ok {
		r.onRoyaltyPaid = append(r.onRoyaltyPaid, v)
		implemented = append(implemented, "OnRoyaltyPaid")
	}
	if v, ok := p.(OnAccessChecked); ok {
		r.onAccessChecked = append(r.onAccessChecked, v)
		implemented = append(implemented, "OnAccessChecked")
	}
	if v, ok := p.(OnContentPurchased); ok {
		r.onContentPurchased = append(r.onContentPurchased, v)
		implemented = append(implemented, "OnContentPurchased")
	}
	if v, ok := p.(OnPurchaseFailed); ok {
		r.onPurchaseFailed = append(r.onPurchaseFailed, v)
		implemented = append(implemented, "OnPurchaseFailed")
	}
	if v, ok := p.(OnFeesWithdrawn); ok {
		r.onFeesWithdrawn = append(r.onFeesWithdrawn, v)
		implemented = append(implemented, "OnFeesWithdrawn")
	}
	if v, ok := p.(OnCustodyDebited); ok {
		r.onCustodyDebited = append(r.onCustodyDebited, v)
		implemented = append(implemented, "OnCustodyDebited")
	}
	if v, ok := p.(OnCustodyCredited); ok {
		r.onCustodyCredited = append(r.onCustodyCredited, v)
		implemented = append(implemented, "OnCustodyCredited")
	}
	if v, ok := p.(OnCustodyReclaimed); ok {
		r.onCustodyReclaimed = append(r.onCustodyReclaimed, v)
		implemented = append(implemented, "OnCustodyReclaimed")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implemented,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, "OnInit", plugins, func(ctx context.Context, p OnInit) error { return p.OnInit(ctx, ledger) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, "OnShutdown", plugins, func(ctx context.Context, p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitContentRegistered emits a content registered event.
func (r *Registry) EmitContentRegistered(ctx context.Context, item *content.Item) {
	r.mu.RLock()
	plugins := r.onContentRegistered
	r.mu.RUnlock()

	emit(ctx, r, "OnContentRegistered", plugins, func(ctx context.Context, p OnContentRegistered) error {
		return p.OnContentRegistered(ctx, item)
	})
}

// EmitPriceChanged emits a price changed event.
func (r *Registry) EmitPriceChanged(ctx context.Context, item *content.Item, oldPrice types.Money) {
	r.mu.RLock()
	plugins := r.onPriceChanged
	r.mu.RUnlock()

	emit(ctx, r, "OnPriceChanged", plugins, func(ctx context.Context, p OnPriceChanged) error {
		return p.OnPriceChanged(ctx, item, oldPrice)
	})
}

// EmitRoyaltyPaid emits a royalty paid event.
func (r *Registry) EmitRoyaltyPaid(ctx context.Context, quote *content.RoyaltyQuote, payer string) {
	r.mu.RLock()
	plugins := r.onRoyaltyPaid
	r.mu.RUnlock()

	emit(ctx, r, "OnRoyaltyPaid", plugins, func(ctx context.Context, p OnRoyaltyPaid) error {
		return p.OnRoyaltyPaid(ctx, quote, payer)
	})
}

// EmitAccessChecked emits an access checked event.
func (r *Registry) EmitAccessChecked(ctx context.Context, result *access.Result) {
	r.mu.RLock()
	plugins := r.onAccessChecked
	r.mu.RUnlock()

	emit(ctx, r, "OnAccessChecked", plugins, func(ctx context.Context, p OnAccessChecked) error {
		return p.OnAccessChecked(ctx, result)
	})
}

// EmitContentPurchased emits a content purchased event.
func (r *Registry) EmitContentPurchased(ctx context.Context, purchase *sale.Purchase) {
	r.mu.RLock()
	plugins := r.onContentPurchased
	r.mu.RUnlock()

	emit(ctx, r, "OnContentPurchased", plugins, func(ctx context.Context, p OnContentPurchased) error {
		return p.OnContentPurchased(ctx, purchase)
	})
}

// EmitPurchaseFailed emits a purchase failed event.
func (r *Registry) EmitPurchaseFailed(ctx context.Context, contentID content.ID, buyer string, cause error) {
	r.mu.RLock()
	plugins := r.onPurchaseFailed
	r.mu.RUnlock()

	emit(ctx, r, "OnPurchaseFailed", plugins, func(ctx context.Context, p OnPurchaseFailed) error {
		return p.OnPurchaseFailed(ctx, contentID, buyer, cause)
	})
}

// EmitFeesWithdrawn emits a fees withdrawn event.
func (r *Registry) EmitFeesWithdrawn(ctx context.Context, w *treasury.Withdrawal) {
	r.mu.RLock()
	plugins := r.onFeesWithdrawn
	r.mu.RUnlock()

	emit(ctx, r, "OnFeesWithdrawn", plugins, func(ctx context.Context, p OnFeesWithdrawn) error {
		return p.OnFeesWithdrawn(ctx, w)
	})
}

// EmitCustodyDebited emits a custody debited event.
func (r *Registry) EmitCustodyDebited(ctx context.Context, receipt *migration.Receipt) {
	r.mu.RLock()
	plugins := r.onCustodyDebited
	r.mu.RUnlock()

	emit(ctx, r, "OnCustodyDebited", plugins, func(ctx context.Context, p OnCustodyDebited) error {
		return p.OnCustodyDebited(ctx, receipt)
	})
}

// EmitCustodyCredited emits a custody credited event.
func (r *Registry) EmitCustodyCredited(ctx context.Context, receipt *migration.Receipt) {
	r.mu.RLock()
	plugins := r.onCustodyCredited
	r.mu.RUnlock()

	emit(ctx, r, "OnCustodyCredited", plugins, func(ctx context.Context, p OnCustodyCredited) error {
		return p.OnCustodyCredited(ctx, receipt)
	})
}

// EmitCustodyReclaimed emits a custody reclaimed event.
func (r *Registry) EmitCustodyReclaimed(ctx context.Context, receipt *migration.Receipt) {
	r.mu.RLock()
	plugins := r.onCustodyReclaimed
	r.mu.RUnlock()

	emit(ctx, r, "OnCustodyReclaimed", plugins, func(ctx context.Context, p OnCustodyReclaimed) error {
		return p.OnCustodyReclaimed(ctx, receipt)
	})
}

// emit invokes call for every plugin, logging failures without propagating them.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, call func(context.Context, T) error) {
	if len(plugins) == 0 {
		return
	}
	hctx := ctx
	if r.hookCtx != nil {
		hctx = r.hookCtx(ctx)
	}
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(hctx, p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger. A hook that times out keeps
// running in the background with the hook context.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
