package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the chat schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id               TEXT         PRIMARY KEY,
			username         VARCHAR(50)  UNIQUE NOT NULL,
			email            VARCHAR(100) UNIQUE,
			hashed_password  VARCHAR(255) NOT NULL,
			is_active        BOOLEAN      NOT NULL DEFAULT TRUE,
			created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS groups (
			id         TEXT         PRIMARY KEY,
			name       VARCHAR(100) NOT NULL,
			admin_id   TEXT         NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS group_members (
			group_id  TEXT        NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id   TEXT        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (group_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id              TEXT        PRIMARY KEY,
			sender_id       TEXT        NOT NULL REFERENCES users(id),
			recipient_kind  VARCHAR(10) NOT NULL CHECK (recipient_kind IN ('user', 'group')),
			recipient_id    TEXT        NOT NULL,
			content         TEXT        NOT NULL DEFAULT '',
			attachment_url  TEXT,
			attachment_mime TEXT,
			reply_to        TEXT,
			status          VARCHAR(10) NOT NULL DEFAULT '',
			edited          BOOLEAN     NOT NULL DEFAULT FALSE,
			deleted         BOOLEAN     NOT NULL DEFAULT FALSE,
			deleted_at      TIMESTAMPTZ,
			reactions       TEXT        NOT NULL DEFAULT '[]',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages (recipient_kind, recipient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created ON messages (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members (user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}
