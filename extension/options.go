package extension

import (
	"github.com/xraph/paywall"
	"github.com/xraph/paywall/api"
	"github.com/xraph/paywall/payment"
	"github.com/xraph/paywall/plugin"
	"github.com/xraph/paywall/store"
)

// Option configures the Paywall Forge extension.
type Option func(*Extension)

// WithStore sets the store for the paywall ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithToken sets the payment token the ledger settles in. Required.
func WithToken(t payment.Token) Option {
	return func(e *Extension) {
		e.token = t
	}
}

// WithLedgerOption passes a paywall.Option through to the underlying ledger.
func WithLedgerOption(opt paywall.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithAPIOption passes an api.Option through to the HTTP handler.
func WithAPIOption(opt api.Option) Option {
	return func(e *Extension) {
		e.apiOpts = append(e.apiOpts, opt)
	}
}

// WithPlugin registers a paywall plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, paywall.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents the HTTP handler from being built.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for paywall routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithDomain sets the execution domain.
func WithDomain(domain string) Option {
	return func(e *Extension) { e.config.Domain = domain }
}

// WithTrustedDomains sets the domains whose receipts the ledger credits.
func WithTrustedDomains(domains ...string) Option {
	return func(e *Extension) { e.config.TrustedDomains = domains }
}

// WithIDSpace sets the content id space registrations allocate from.
func WithIDSpace(n uint16) Option {
	return func(e *Extension) { e.config.IDSpace = n }
}

// WithOwner sets the identity allowed to withdraw platform fees.
func WithOwner(owner string) Option {
	return func(e *Extension) { e.config.Owner = owner }
}

// WithPlatformFee sets the platform's percentage of every sale.
// Unlike the config field, an explicit zero is honoured.
func WithPlatformFee(percent uint8) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, paywall.WithPlatformFee(percent))
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
