package extension

// Config holds the Paywall extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.paywall" or "paywall" keys).
type Config struct {
	// DisableRoutes prevents the HTTP handler from being built.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for paywall routes (default: "/paywall").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Domain names the execution domain this ledger runs on (default: "local").
	Domain string `json:"domain" mapstructure:"domain" yaml:"domain"`

	// Account is the ledger's own payment account (default: "paywall").
	Account string `json:"account" mapstructure:"account" yaml:"account"`

	// Owner is the identity allowed to withdraw platform fees.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// Treasury receives withdrawn fees. Defaults to Owner.
	Treasury string `json:"treasury" mapstructure:"treasury" yaml:"treasury"`

	// PlatformFee is the platform's cut of every sale in percent (default: 5).
	// Zero means the default; use WithPlatformFee for a fee-free platform.
	PlatformFee uint8 `json:"platform_fee" mapstructure:"platform_fee" yaml:"platform_fee"`

	// TrustedDomains lists the domains whose receipts this ledger credits.
	TrustedDomains []string `json:"trusted_domains" mapstructure:"trusted_domains" yaml:"trusted_domains"`

	// IDSpace selects the content id range registrations allocate from.
	// Domains that migrate items to each other need distinct spaces.
	IDSpace uint16 `json:"id_space" mapstructure:"id_space" yaml:"id_space"`

	// DisableReceiptDedup turns off the consumed-receipt check on credit.
	DisableReceiptDedup bool `json:"disable_receipt_dedup" mapstructure:"disable_receipt_dedup" yaml:"disable_receipt_dedup"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath: "/paywall",
	}
}
