package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the token ledger store (PostgreSQL).
var Migrations = migrate.NewGroup("tokenledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tl_journal_entries",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tl_journal_entries (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL DEFAULT '',
    token_kind     TEXT NOT NULL DEFAULT '',
    tx_kind        TEXT NOT NULL DEFAULT '',
    action         TEXT NOT NULL DEFAULT '',
    tokens_before  BIGINT NOT NULL DEFAULT 0,
    tokens_changed BIGINT NOT NULL DEFAULT 0,
    tokens_after   BIGINT NOT NULL DEFAULT 0,
    unit_cost      TEXT NOT NULL DEFAULT '',
    total_cost     TEXT NOT NULL DEFAULT '',
    currency       TEXT NOT NULL DEFAULT '',
    external_ref   TEXT NOT NULL DEFAULT '',
    reason         TEXT NOT NULL DEFAULT '',
    metadata       JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tl_journal_user_kind ON tl_journal_entries (user_id, token_kind, created_at);
CREATE INDEX IF NOT EXISTS idx_tl_journal_tx_kind ON tl_journal_entries (user_id, token_kind, tx_kind);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tl_journal_external_ref ON tl_journal_entries (user_id, token_kind, external_ref) WHERE external_ref != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tl_journal_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tl_pricing_rules",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tl_pricing_rules (
    id         TEXT PRIMARY KEY,
    action     TEXT NOT NULL DEFAULT '',
    token_kind TEXT NOT NULL DEFAULT '',
    tokens     BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tl_pricing_action ON tl_pricing_rules (action);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tl_pricing_rules`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tl_packages",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tl_packages (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    slug        TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'draft',
    price       TEXT NOT NULL DEFAULT '0',
    currency    TEXT NOT NULL DEFAULT '',
    grants      JSONB NOT NULL DEFAULT '[]',
    metadata    JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tl_packages_slug ON tl_packages (slug);
CREATE INDEX IF NOT EXISTS idx_tl_packages_status ON tl_packages (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tl_packages`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tl_discount_codes",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tl_discount_codes (
    id              TEXT PRIMARY KEY,
    code            TEXT NOT NULL DEFAULT '',
    percentage      BIGINT NOT NULL DEFAULT 0,
    max_redemptions BIGINT NOT NULL DEFAULT 0,
    times_redeemed  BIGINT NOT NULL DEFAULT 0,
    valid_from      TIMESTAMPTZ,
    valid_until     TIMESTAMPTZ,
    metadata        JSONB NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tl_discount_code ON tl_discount_codes (code);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tl_discount_codes`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tl_amortization_schedules",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tl_amortization_schedules (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL DEFAULT '',
    loan_ref   TEXT NOT NULL DEFAULT '',
    parameters JSONB NOT NULL DEFAULT '{}',
    payment    TEXT NOT NULL DEFAULT '0',
    currency   TEXT NOT NULL DEFAULT '',
    entries    JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tl_schedules_user ON tl_amortization_schedules (user_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tl_schedules_loan_ref ON tl_amortization_schedules (user_id, loan_ref) WHERE loan_ref != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tl_amortization_schedules`)
				return err
			},
		},
	)
}
