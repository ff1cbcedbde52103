package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS bank_nodes (
		seq           BIGSERIAL,
		code          TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		legal_id      TEXT NOT NULL,
		api_endpoint  TEXT,
		kind          TEXT NOT NULL,
		status        TEXT NOT NULL,
		registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		ref            TEXT PRIMARY KEY,
		balance_micros BIGINT NOT NULL DEFAULT 0 CHECK (balance_micros >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		pan         TEXT PRIMARY KEY,
		cvc         TEXT NOT NULL,
		expiry      TEXT NOT NULL,
		account_ref TEXT NOT NULL REFERENCES accounts(ref),
		active      BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS merchants (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		account_ref TEXT NOT NULL REFERENCES accounts(ref),
		active      BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS transaction_journal (
		id             UUID PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		kind           TEXT NOT NULL,
		amount_micros  BIGINT NOT NULL,
		issuer_code    TEXT,
		receiver_code  TEXT,
		masked_pan     TEXT,
		status         TEXT NOT NULL,
		error_code     TEXT,
		message        TEXT,
		recorded_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_transaction_id ON transaction_journal (transaction_id)`,
	`INSERT INTO accounts (ref, balance_micros) VALUES ('suspense:interbank', 0)
		ON CONFLICT (ref) DO NOTHING`,
}

// EnsureSchema creates the switch's tables when they do not exist yet and
// seeds the interbank suspense account.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
