package config

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func InitDB(dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// RunMigrations applies the schema. Every statement is idempotent so the
// whole list runs on each start.
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			avatar TEXT,
			preferences JSONB NOT NULL DEFAULT '{}',
			level INTEGER NOT NULL DEFAULT 1,
			experience INTEGER NOT NULL DEFAULT 0,
			totp_secret TEXT,
			totp_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(50) NOT NULL,
			icon VARCHAR(16) NOT NULL DEFAULT '',
			color VARCHAR(16) NOT NULL DEFAULT '',
			parent_id UUID REFERENCES categories(id) ON DELETE SET NULL,
			budget NUMERIC(14,2),
			spent NUMERIC(14,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, name)
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id UUID NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
			amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
			currency CHAR(3) NOT NULL DEFAULT 'USD',
			description TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			location JSONB,
			tags TEXT[] NOT NULL DEFAULT '{}',
			is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
			recurring_pattern JSONB,
			mood VARCHAR(20),
			merchant VARCHAR(200),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(100) NOT NULL,
			amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
			currency CHAR(3) NOT NULL DEFAULT 'USD',
			period VARCHAR(10) NOT NULL,
			category_ids TEXT[] NOT NULL DEFAULT '{}',
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_alerted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS achievements (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			key VARCHAR(50) NOT NULL,
			name VARCHAR(100) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon VARCHAR(16) NOT NULL DEFAULT '',
			progress INTEGER NOT NULL DEFAULT 0,
			max_progress INTEGER NOT NULL DEFAULT 1,
			unlocked_at TIMESTAMPTZ,
			UNIQUE(user_id, key)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type VARCHAR(50) NOT NULL,
			title VARCHAR(200) NOT NULL,
			message TEXT NOT NULL,
			data JSONB,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_budgets_user_active ON budgets(user_id) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(created_at) WHERE is_read`,

		// Ajouts de colonnes pour les bases existantes
		`ALTER TABLE expenses ADD COLUMN IF NOT EXISTS merchant VARCHAR(200)`,
		`ALTER TABLE budgets ADD COLUMN IF NOT EXISTS last_alerted_at TIMESTAMPTZ`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
