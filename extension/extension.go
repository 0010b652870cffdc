// Package extension provides the Forge extension adapter for Paywall.
//
// It implements the forge.Extension interface to integrate the paywall
// Ledger into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.paywall" or "paywall" keys.
package extension

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/api"
	"github.com/xraph/paywall/payment"
	"github.com/xraph/paywall/store"
	"github.com/xraph/paywall/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "paywall"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Content-monetization ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Paywall as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *paywall.Ledger
	handler    http.Handler
	store      store.Store
	token      payment.Token
	ledgerOpts []paywall.Option
	apiOpts    []api.Option
}

// New creates a new Paywall Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *paywall.Ledger { return e.engine }

// Handler returns the HTTP handler serving the paywall API under the
// configured base path. It is nil until Register is called, and stays nil
// when routes are disabled.
func (e *Extension) Handler() http.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.build(); err != nil {
		return err
	}

	return vessel.Provide(fapp.Container(), func() (*paywall.Ledger, error) {
		return e.engine, nil
	})
}

// build constructs the ledger and, unless disabled, its HTTP handler from
// the resolved config.
func (e *Extension) build() error {
	if e.token == nil {
		return errors.New("paywall: extension requires a payment token; use WithToken")
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	eng, err := paywall.New(e.store, e.token, e.buildLedgerOpts()...)
	if err != nil {
		return err
	}
	e.engine = eng

	if !e.config.DisableRoutes {
		r := chi.NewRouter()
		r.Mount(strings.TrimSuffix(e.config.BasePath, "/"), api.New(eng, e.apiOpts...).Routes())
		e.handler = r
	}
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("paywall: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("paywall: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs paywall.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []paywall.Option {
	opts := make([]paywall.Option, 0, len(e.ledgerOpts)+6)

	if e.config.Domain != "" {
		opts = append(opts, paywall.WithDomain(e.config.Domain))
	}
	if e.config.Account != "" {
		opts = append(opts, paywall.WithAccount(e.config.Account))
	}
	if e.config.Owner != "" {
		opts = append(opts, paywall.WithOwner(e.config.Owner))
	}
	if e.config.Treasury != "" {
		opts = append(opts, paywall.WithTreasury(e.config.Treasury))
	}
	if e.config.PlatformFee > 0 {
		opts = append(opts, paywall.WithPlatformFee(e.config.PlatformFee))
	}
	if e.config.DisableReceiptDedup {
		opts = append(opts, paywall.WithReceiptDedup(false))
	}
	if len(e.config.TrustedDomains) > 0 {
		opts = append(opts, paywall.WithTrustedDomains(e.config.TrustedDomains...))
	}
	if e.config.IDSpace > 0 {
		opts = append(opts, paywall.WithIDSpace(e.config.IDSpace))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("paywall: configuration is required but not found in config files; " +
				"ensure 'extensions.paywall' or 'paywall' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("paywall: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("domain", e.config.Domain),
		forge.F("owner", e.config.Owner),
		forge.F("platform_fee", e.config.PlatformFee),
		forge.F("disable_receipt_dedup", e.config.DisableReceiptDedup),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.paywall" first (namespaced pattern).
	if cm.IsSet("extensions.paywall") {
		if err := cm.Bind("extensions.paywall", &cfg); err == nil {
			e.Logger().Debug("paywall: loaded config from file",
				forge.F("key", "extensions.paywall"),
			)
			return cfg, true
		}
		e.Logger().Warn("paywall: failed to bind extensions.paywall config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "paywall" key.
	if cm.IsSet("paywall") {
		if err := cm.Bind("paywall", &cfg); err == nil {
			e.Logger().Debug("paywall: loaded config from file",
				forge.F("key", "paywall"),
			)
			return cfg, true
		}
		e.Logger().Warn("paywall: failed to bind paywall config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableReceiptDedup {
		yamlConfig.DisableReceiptDedup = true
	}

	// String fields: YAML takes precedence.
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&yamlConfig.BasePath, programmaticConfig.BasePath)
	fill(&yamlConfig.Domain, programmaticConfig.Domain)
	fill(&yamlConfig.Account, programmaticConfig.Account)
	fill(&yamlConfig.Owner, programmaticConfig.Owner)
	fill(&yamlConfig.Treasury, programmaticConfig.Treasury)

	if yamlConfig.PlatformFee == 0 && programmaticConfig.PlatformFee != 0 {
		yamlConfig.PlatformFee = programmaticConfig.PlatformFee
	}
	if yamlConfig.IDSpace == 0 && programmaticConfig.IDSpace != 0 {
		yamlConfig.IDSpace = programmaticConfig.IDSpace
	}
	if len(yamlConfig.TrustedDomains) == 0 {
		yamlConfig.TrustedDomains = programmaticConfig.TrustedDomains
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
