package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/paywall/payment"
	"github.com/xraph/paywall/types"
)

// Config is read from the environment.
type Config struct {
	Addr            string        `env:"PAYWALL_ADDR" env-default:":8080"`
	LogLevel        string        `env:"PAYWALL_LOG_LEVEL" env-default:"info"`
	ShutdownTimeout time.Duration `env:"PAYWALL_SHUTDOWN_TIMEOUT" env-default:"10s"`

	Ledger LedgerConfig
	Kafka  KafkaConfig
	Redis  RedisConfig
}

type LedgerConfig struct {
	Domain       string `env:"PAYWALL_DOMAIN" env-default:"local"`
	Account      string `env:"PAYWALL_ACCOUNT" env-default:"paywall"`
	Owner        string `env:"PAYWALL_OWNER" env-required:"true"`
	Treasury     string `env:"PAYWALL_TREASURY"`
	PlatformFee  uint8  `env:"PAYWALL_PLATFORM_FEE" env-default:"5"`
	Denom        string `env:"PAYWALL_DENOM" env-default:"usdc"`
	ReceiptDedup bool   `env:"PAYWALL_RECEIPT_DEDUP" env-default:"true"`
	IDSpace      uint16 `env:"PAYWALL_ID_SPACE" env-default:"0"`

	// TrustedDomains lists the source domains whose receipts are credited.
	TrustedDomains []string `env:"PAYWALL_TRUSTED_DOMAINS" env-separator:","`

	// Seed funds accounts of the in-memory token at startup and approves
	// the ledger account to spend them, e.g. "alice:1000,bob:500".
	Seed map[string]string `env:"PAYWALL_SEED"`
}

// KafkaConfig enables the Kafka receipt transport when Brokers is set.
type KafkaConfig struct {
	Brokers []string `env:"PAYWALL_KAFKA_BROKERS" env-separator:","`
	Topic   string   `env:"PAYWALL_KAFKA_TOPIC" env-default:"paywall.receipts"`
	Group   string   `env:"PAYWALL_KAFKA_GROUP"`
}

// RedisConfig enables the Redis Streams receipt transport when URL is set.
// MaxLen trims the stream approximately; keep it well above the backlog a
// stopped consumer may accumulate.
type RedisConfig struct {
	URL      string `env:"PAYWALL_REDIS_URL"`
	Stream   string `env:"PAYWALL_REDIS_STREAM" env-default:"paywall:receipts"`
	Group    string `env:"PAYWALL_REDIS_GROUP"`
	Consumer string `env:"PAYWALL_REDIS_CONSUMER" env-default:"paywalld"`
	MaxLen   int64  `env:"PAYWALL_REDIS_MAXLEN" env-default:"10000"`
}

// seed mints and approves the configured balances.
func (c LedgerConfig) seed(token *payment.MemoryToken) error {
	for account, raw := range c.Seed {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("seed %s: %w", account, err)
		}
		m := types.New(amount, c.Denom)
		if err := token.Mint(account, m); err != nil {
			return fmt.Errorf("seed %s: %w", account, err)
		}
		if err := token.Approve(account, c.Account, m); err != nil {
			return fmt.Errorf("seed %s: %w", account, err)
		}
	}
	return nil
}
