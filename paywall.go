package paywall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/custody"
	"github.com/xraph/paywall/payment"
	"github.com/xraph/paywall/plugin"
	"github.com/xraph/paywall/store"
	"github.com/xraph/paywall/transport"
)

const (
	// DefaultAccount is the identity the ledger pulls payments into. Platform
	// fees accumulate on it until withdrawn.
	DefaultAccount = "paywall"

	// DefaultDomain names the execution domain when none is configured.
	DefaultDomain = "local"

	// DefaultPlatformFee is the platform's cut of every sale, in percent.
	DefaultPlatformFee uint8 = 5
)

// Ledger is the content-monetization engine. It owns the content registry,
// subscription grants, purchase settlement, and the migration hooks.
type Ledger struct {
	store     store.Store
	token     payment.Token
	custody   custody.Registry
	transport transport.Transport
	plugins   *plugin.Registry
	logger    *slog.Logger
	clock     func() time.Time

	guard *guard

	// Configuration
	account      string
	owner        string
	treasury     string
	domain       string
	platformFee  uint8
	receiptDedup bool
	idSpace      content.IDRange
	trusted      map[string]bool
}

// New creates a new Ledger settling payments in token.
func New(s store.Store, token payment.Token, opts ...Option) (*Ledger, error) {
	if s == nil {
		return nil, errors.New("paywall: store is required")
	}
	if token == nil {
		return nil, errors.New("paywall: payment token is required")
	}

	l := &Ledger{
		store:        s,
		token:        token,
		custody:      custody.NewBook(),
		plugins:      plugin.NewRegistry(),
		logger:       slog.Default(),
		clock:        time.Now,
		guard:        newGuard(),
		account:      DefaultAccount,
		domain:       DefaultDomain,
		platformFee:  DefaultPlatformFee,
		receiptDedup: true,
		idSpace:      content.Space(0),
		trusted:      make(map[string]bool),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.platformFee > 100 {
		return nil, ValidationError{Field: "platform_fee", Message: fmt.Sprintf("%d exceeds 100", l.platformFee)}
	}
	if l.account == "" {
		return nil, ValidationError{Field: "account", Message: "must not be empty"}
	}
	if l.treasury == "" {
		l.treasury = l.owner
	}
	if l.trusted[l.domain] {
		return nil, ValidationError{Field: "trusted_domains", Message: fmt.Sprintf("must not include the local domain %q", l.domain)}
	}
	l.plugins.WithContextFunc(l.guard.callback)

	return l, nil
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPlatformFee sets the platform's percentage of every sale.
func WithPlatformFee(percent uint8) Option {
	return func(l *Ledger) {
		l.platformFee = percent
	}
}

// WithOwner sets the identity allowed to withdraw platform fees.
func WithOwner(owner string) Option {
	return func(l *Ledger) {
		l.owner = owner
	}
}

// WithTreasury sets where withdrawn fees are sent. Defaults to the owner.
func WithTreasury(treasury string) Option {
	return func(l *Ledger) {
		l.treasury = treasury
	}
}

// WithAccount sets the ledger's own payment account. Buyers approve this
// account as a spender before purchasing.
func WithAccount(account string) Option {
	return func(l *Ledger) {
		l.account = account
	}
}

// WithDomain names the execution domain this ledger runs on.
func WithDomain(domain string) Option {
	return func(l *Ledger) {
		l.domain = domain
	}
}

// WithCustody replaces the in-memory custody book.
func WithCustody(c custody.Registry) Option {
	return func(l *Ledger) {
		l.custody = c
	}
}

// WithTransport sets the transport used by Migrate.
func WithTransport(t transport.Transport) Option {
	return func(l *Ledger) {
		l.transport = t
	}
}

// WithReceiptDedup toggles the consumed-receipt check on Credit. Disable it
// only for transports with exactly-once delivery.
func WithReceiptDedup(enabled bool) Option {
	return func(l *Ledger) {
		l.receiptDedup = enabled
	}
}

// WithTrustedDomains adds domains whose receipts Credit accepts. Receipts
// carry no proof of the debit, so every other source is refused.
func WithTrustedDomains(domains ...string) Option {
	return func(l *Ledger) {
		for _, d := range domains {
			if d != "" {
				l.trusted[d] = true
			}
		}
	}
}

// WithIDSpace makes Register allocate ids from content.Space(n). Domains
// that migrate items between each other need distinct spaces.
func WithIDSpace(n uint16) Option {
	return func(l *Ledger) {
		l.idSpace = content.Space(n)
	}
}

// WithClock sets the time source used for record timestamps and for
// receipts delivered through Deliver.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = now
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("paywall started",
		"domain", l.domain,
		"account", l.account,
		"platform_fee", l.platformFee,
		"receipt_dedup", l.receiptDedup,
		"id_space_first", l.idSpace.First,
		"trusted_domains", len(l.trusted),
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Domain returns the execution domain this ledger runs on.
func (l *Ledger) Domain() string { return l.domain }

// Account returns the ledger's payment account.
func (l *Ledger) Account() string { return l.account }

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

func (l *Ledger) now() time.Time { return l.clock().UTC() }
