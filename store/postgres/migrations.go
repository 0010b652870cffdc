package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the paywall store.
var Migrations = migrate.NewGroup("paywall")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_paywall_contents",
			Version: "20260601000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paywall_contents (
    id                    BIGINT PRIMARY KEY,
    creator               TEXT NOT NULL,
    content_hash          TEXT NOT NULL,
    price_amount          BIGINT NOT NULL CHECK (price_amount > 0),
    price_denom           TEXT NOT NULL,
    royalty_percentage    SMALLINT NOT NULL DEFAULT 0 CHECK (royalty_percentage BETWEEN 0 AND 100),
    is_subscription       BOOLEAN NOT NULL DEFAULT FALSE,
    subscription_duration BIGINT NOT NULL DEFAULT 0,
    origin                TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_paywall_contents_creator ON paywall_contents (creator);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paywall_contents`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_paywall_grants",
			Version: "20260601000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paywall_grants (
    content_id BIGINT NOT NULL REFERENCES paywall_contents (id),
    holder     TEXT NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (content_id, holder)
);

CREATE INDEX IF NOT EXISTS idx_paywall_grants_holder ON paywall_grants (holder);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paywall_grants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_paywall_purchases",
			Version: "20260601000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paywall_purchases (
    id                     TEXT PRIMARY KEY,
    content_id             BIGINT NOT NULL,
    buyer                  TEXT NOT NULL,
    creator                TEXT NOT NULL,
    previous_holder        TEXT NOT NULL DEFAULT '',
    mode                   TEXT NOT NULL,
    denom                  TEXT NOT NULL,
    price_amount           BIGINT NOT NULL,
    platform_fee_amount    BIGINT NOT NULL,
    creator_payment_amount BIGINT NOT NULL,
    expires_at             TIMESTAMPTZ,
    purchased_at           TIMESTAMPTZ NOT NULL,
    created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_paywall_purchases_content ON paywall_purchases (content_id, created_at);
CREATE INDEX IF NOT EXISTS idx_paywall_purchases_buyer ON paywall_purchases (buyer, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paywall_purchases`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_paywall_withdrawals",
			Version: "20260601000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paywall_withdrawals (
    id           TEXT PRIMARY KEY,
    caller       TEXT NOT NULL,
    treasury     TEXT NOT NULL,
    amount       BIGINT NOT NULL,
    denom        TEXT NOT NULL,
    withdrawn_at TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paywall_withdrawals`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_paywall_consumed_receipts",
			Version: "20260601000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paywall_consumed_receipts (
    id          TEXT PRIMARY KEY,
    consumed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paywall_consumed_receipts`)
				return err
			},
		},
	)
}
