package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

func Connect(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		external_id BIGINT UNIQUE NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		subscription_expiry TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (id),
		amount BIGINT NOT NULL,
		days INT NOT NULL,
		currency TEXT NOT NULL DEFAULT '',
		invoice_payload TEXT UNIQUE NOT NULL,
		paid_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS promo_codes (
		id BIGSERIAL PRIMARY KEY,
		code TEXT UNIQUE NOT NULL,
		days INT NOT NULL,
		max_uses INT NOT NULL DEFAULT 1,
		used_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		CHECK (used_count <= max_uses)
	)`,
	`CREATE TABLE IF NOT EXISTS promo_code_usages (
		id BIGSERIAL PRIMARY KEY,
		promo_code_id BIGINT NOT NULL REFERENCES promo_codes (id),
		user_id BIGINT NOT NULL REFERENCES users (id),
		used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (promo_code_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGSERIAL PRIMARY KEY,
		subject TEXT NOT NULL,
		token TEXT UNIQUE NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates all tables if they do not exist yet.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
