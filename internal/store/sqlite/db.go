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

// Migrate runs database migrations: an idempotent set of CREATE TABLE /
// CREATE INDEX statements mirroring the original MySQL schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Dashboard accounts (agents and admins)
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			site_key VARCHAR(64) UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Conversations
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY,
			visitor_id VARCHAR(100) NOT NULL,
			first_name VARCHAR(100),
			last_name VARCHAR(100),
			contact_number VARCHAR(50),
			problem TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			is_muted BOOLEAN NOT NULL DEFAULT 0,
			assigned_agent_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (assigned_agent_id) REFERENCES users(id)
		);`,
		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			conversation_id INTEGER NOT NULL,
			sender_type VARCHAR(20) NOT NULL,
			content TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);`,
		// Per-agent notification policy
		`CREATE TABLE IF NOT EXISTS agent_settings (
			agent_id INTEGER PRIMARY KEY,
			email_enabled BOOLEAN NOT NULL DEFAULT 1,
			whatsapp_enabled BOOLEAN NOT NULL DEFAULT 0,
			whatsapp_number VARCHAR(30) NOT NULL DEFAULT '',
			notification_email VARCHAR(100) NOT NULL DEFAULT '',
			FOREIGN KEY (agent_id) REFERENCES users(id)
		);`,
		// Widget analytics events
		`CREATE TABLE IF NOT EXISTS stats (
			id INTEGER PRIMARY KEY,
			event_type VARCHAR(50) NOT NULL,
			visitor_id VARCHAR(100),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// One open conversation per visitor identity, enforced by the store
		// so concurrent registrations cannot create duplicates.
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_conversations_visitor_open
			ON conversations(visitor_id) WHERE status = 'open';`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_visitor ON conversations(visitor_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_status ON conversations(status);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(is_read, sender_type);`,
		`CREATE INDEX IF NOT EXISTS idx_stats_event ON stats(event_type);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
		`CREATE INDEX IF NOT EXISTS idx_users_site_key ON users(site_key);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
