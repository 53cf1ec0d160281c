package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migrations holds the ordered schema history. Entries are append-only;
// each statement set is applied in its own transaction and recorded in
// schema_migrations.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL CHECK (role IN ('admin', 'mediator', 'client')),
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	);`,

	`CREATE TABLE IF NOT EXISTS cases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		case_number TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'medium'
			CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
		status TEXT NOT NULL DEFAULT 'pending',
		created_by INTEGER NOT NULL REFERENCES users(id),
		assigned_mediator INTEGER REFERENCES users(id),
		resolution_summary TEXT NOT NULL DEFAULT '',
		resolution_date TEXT,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS case_number_counters (
		year INTEGER PRIMARY KEY,
		last_seq INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS case_parties (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		case_id INTEGER NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id),
		party_type TEXT NOT NULL CHECK (party_type IN ('claimant', 'respondent')),
		organization TEXT NOT NULL DEFAULT '',
		representative TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		case_id INTEGER NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
		session_number INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		scheduled_date TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 60 CHECK (duration_minutes >= 15),
		status TEXT NOT NULL DEFAULT 'scheduled',
		location TEXT NOT NULL DEFAULT 'Online',
		meeting_link TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		completed_at TEXT,
		created_at TEXT NOT NULL,
		UNIQUE (case_id, session_number)
	);
	CREATE TABLE IF NOT EXISTS session_number_counters (
		case_id INTEGER PRIMARY KEY REFERENCES cases(id) ON DELETE CASCADE,
		last_seq INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS session_participants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id),
		attendance_status TEXT NOT NULL DEFAULT 'invited',
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS case_activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		case_id INTEGER NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL,
		activity_type TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`,
}

// Migrate applies any pending schema migrations.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	var current int
	err := cp.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for version := current + 1; version <= len(migrations); version++ {
		statements := migrations[version-1]
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statements); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				version, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
	}

	return nil
}
