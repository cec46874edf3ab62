package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSchema creates the tables this service owns if they are missing.
// Safe to call at startup; every statement is idempotent.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS instagram_users (
			id BIGSERIAL PRIMARY KEY,
			facebook_user_id TEXT NOT NULL,
			access_token TEXT NOT NULL,
			token_expires_at TIMESTAMPTZ NOT NULL,
			facebook_page_id TEXT NOT NULL UNIQUE,
			facebook_page_name TEXT NOT NULL,
			instagram_user_id TEXT NOT NULL,
			instagram_username TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS licenses (
			id BIGSERIAL PRIMARY KEY,
			license_key TEXT NOT NULL UNIQUE,
			domain TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			user_id BIGINT,
			user_no TEXT,
			user_name TEXT,
			activated_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS post_attempts (
			id BIGSERIAL PRIMARY KEY,
			license_id BIGINT,
			facebook_page_id TEXT NOT NULL,
			image_url TEXT,
			wordpress_post_id TEXT,
			status TEXT NOT NULL,
			error_code TEXT,
			error_message TEXT,
			quota_usage INT,
			quota_total INT NOT NULL DEFAULT 25,
			container_id TEXT,
			media_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_instagram_users_expiry ON instagram_users (token_expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_post_attempts_license ON post_attempts (license_id, created_at)`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensuring schema failed: %w", err)
		}
	}
	return nil
}
