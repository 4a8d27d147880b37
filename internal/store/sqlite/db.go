package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL for the chat schema. Message rows are
// document-shaped: reactions live in a JSON column, the attachment in a
// pair of nullable columns.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			username        VARCHAR(50) UNIQUE NOT NULL,
			email           VARCHAR(100) UNIQUE,
			hashed_password VARCHAR(255) NOT NULL,
			is_active       BOOLEAN NOT NULL DEFAULT TRUE,
			created_at      DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS groups (
			id         TEXT PRIMARY KEY,
			name       VARCHAR(100) NOT NULL,
			admin_id   TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (admin_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id  TEXT NOT NULL,
			user_id   TEXT NOT NULL,
			joined_at DATETIME NOT NULL,
			PRIMARY KEY (group_id, user_id),
			FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			sender_id       TEXT NOT NULL,
			recipient_kind  TEXT NOT NULL CHECK (recipient_kind IN ('user', 'group')),
			recipient_id    TEXT NOT NULL,
			content         TEXT NOT NULL DEFAULT '',
			attachment_url  TEXT,
			attachment_mime TEXT,
			reply_to        TEXT,
			status          TEXT NOT NULL DEFAULT '',
			edited          BOOLEAN NOT NULL DEFAULT 0,
			deleted         BOOLEAN NOT NULL DEFAULT 0,
			deleted_at      DATETIME,
			reactions       TEXT NOT NULL DEFAULT '[]',
			created_at      DATETIME NOT NULL,
			FOREIGN KEY (sender_id) REFERENCES users(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient_kind, recipient_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
