package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS providers (
		id                TEXT PRIMARY KEY,
		npi               TEXT NOT NULL UNIQUE,
		enumeration_type  TEXT NOT NULL DEFAULT 'NPI-1',
		first_name        TEXT,
		last_name         TEXT,
		organization_name TEXT,
		city              TEXT,
		state             TEXT,
		postal_code       TEXT,
		phone             TEXT,
		email             TEXT,
		taxonomy          TEXT,
		primary_address   TEXT NOT NULL DEFAULT '{}',
		mailing_address   TEXT NOT NULL DEFAULT '{}',
		raw_data          TEXT NOT NULL DEFAULT '{}',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_providers_state ON providers (state)`,
	`CREATE INDEX IF NOT EXISTS idx_providers_taxonomy ON providers (taxonomy)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id                TEXT PRIMARY KEY,
		provider_id       TEXT NOT NULL REFERENCES providers (id) ON DELETE CASCADE,
		status            TEXT NOT NULL DEFAULT 'NEW',
		notes             TEXT,
		last_contacted_at TIMESTAMPTZ,
		last_contact_type TEXT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_provider_id ON leads (provider_id)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads (status)`,
	`CREATE TABLE IF NOT EXISTS sync_progress (
		id                TEXT PRIMARY KEY,
		search_key        TEXT NOT NULL UNIQUE,
		last_fetched_skip INTEGER NOT NULL DEFAULT 0,
		total_fetched     INTEGER NOT NULL DEFAULT 0,
		total_available   INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
