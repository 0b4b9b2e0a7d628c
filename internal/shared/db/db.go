package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

func ConnectPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// Migrate garante o esquema do núcleo de apostas. Idempotente; roda no boot
// de cada serviço.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			id               UUID PRIMARY KEY,
			user_id          TEXT NOT NULL UNIQUE,
			balance_cents    BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
			locked_cents     BIGINT NOT NULL DEFAULT 0 CHECK (locked_cents >= 0),
			total_won_cents  BIGINT NOT NULL DEFAULT 0,
			total_lost_cents BIGINT NOT NULL DEFAULT 0,
			version          BIGINT NOT NULL DEFAULT 1,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS contests (
			id              TEXT PRIMARY KEY,
			side_a          TEXT NOT NULL,
			side_b          TEXT NOT NULL,
			status          TEXT NOT NULL DEFAULT 'SCHEDULED',
			scheduled_start TIMESTAMPTZ NOT NULL,
			outcome         TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			id                    UUID PRIMARY KEY,
			contest_id            TEXT NOT NULL,
			creator_id            TEXT NOT NULL,
			acceptor_id           TEXT,
			chosen_side           TEXT NOT NULL,
			amount_cents          BIGINT NOT NULL CHECK (amount_cents > 0),
			status                TEXT NOT NULL,
			cancellation_deadline TIMESTAMPTZ,
			accepted_at           TIMESTAMPTZ,
			cancelled_at          TIMESTAMPTZ,
			settled_at            TIMESTAMPTZ,
			actual_payout_cents   BIGINT,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_contest_status ON bets(contest_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_status ON bets(status)`,
		`CREATE TABLE IF NOT EXISTS wager_ledger (
			id            UUID PRIMARY KEY,
			wallet_id     UUID NOT NULL REFERENCES wallets(id),
			user_id       TEXT NOT NULL,
			bet_id        UUID,
			op            TEXT NOT NULL,
			amount_cents  BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			locked_after  BIGINT NOT NULL,
			description   TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS commission_records (
			id               UUID PRIMARY KEY,
			contest_id       TEXT NOT NULL,
			outcome          TEXT NOT NULL,
			total_pot_cents  BIGINT NOT NULL,
			commission_cents BIGINT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
