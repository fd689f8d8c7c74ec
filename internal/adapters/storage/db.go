package storage

import (
	"database/sql"
	"fmt"
)

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create tables
	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS member (
		id TEXT PRIMARY KEY,
		account_id TEXT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS class_type (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		max_capacity INTEGER NOT NULL,
		duration_min INTEGER NOT NULL,
		trainer_id TEXT
	);

	CREATE TABLE IF NOT EXISTS plan (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plan_group (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		name TEXT NOT NULL,
		sessions INTEGER NOT NULL,
		categories TEXT NOT NULL,
		FOREIGN KEY (plan_id) REFERENCES plan(id)
	);

	CREATE TABLE IF NOT EXISTS subscription (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		FOREIGN KEY (member_id) REFERENCES member(id),
		FOREIGN KEY (plan_id) REFERENCES plan(id)
	);

	CREATE TABLE IF NOT EXISTS group_session (
		id TEXT PRIMARY KEY,
		subscription_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		remaining INTEGER NOT NULL,
		total INTEGER NOT NULL,
		FOREIGN KEY (subscription_id) REFERENCES subscription(id),
		FOREIGN KEY (group_id) REFERENCES plan_group(id),
		CHECK (remaining >= 0),
		CHECK (remaining <= total)
	);

	CREATE TABLE IF NOT EXISTS ledger_entry (
		id TEXT PRIMARY KEY,
		group_session_id TEXT NOT NULL,
		registration_id TEXT,
		delta INTEGER NOT NULL,
		reason TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		FOREIGN KEY (group_session_id) REFERENCES group_session(id)
	);

	CREATE TABLE IF NOT EXISTS schedule (
		id TEXT PRIMARY KEY,
		class_type_id TEXT NOT NULL,
		trainer_id TEXT,
		repetition TEXT NOT NULL,
		schedule_date TEXT,
		start_date TEXT,
		end_date TEXT,
		day TEXT,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		FOREIGN KEY (class_type_id) REFERENCES class_type(id)
	);

	CREATE TABLE IF NOT EXISTS course_instance (
		id TEXT PRIMARY KEY,
		schedule_id TEXT NOT NULL,
		class_type_id TEXT NOT NULL,
		trainer_id TEXT,
		course_date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		max_capacity INTEGER NOT NULL,
		status TEXT NOT NULL,
		UNIQUE (schedule_id, course_date),
		FOREIGN KEY (schedule_id) REFERENCES schedule(id),
		FOREIGN KEY (class_type_id) REFERENCES class_type(id)
	);

	CREATE TABLE IF NOT EXISTS registration (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		course_instance_id TEXT NOT NULL,
		status TEXT NOT NULL,
		registered_at TEXT NOT NULL,
		qr_code TEXT NOT NULL UNIQUE,
		is_guest INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		group_session_id TEXT,
		FOREIGN KEY (member_id) REFERENCES member(id),
		FOREIGN KEY (course_instance_id) REFERENCES course_instance(id),
		FOREIGN KEY (group_session_id) REFERENCES group_session(id)
	);

	CREATE TABLE IF NOT EXISTS check_in (
		id TEXT PRIMARY KEY,
		registration_id TEXT NOT NULL UNIQUE,
		checkin_time TEXT NOT NULL,
		session_consumed INTEGER NOT NULL DEFAULT 1,
		late INTEGER NOT NULL DEFAULT 0,
		validated_by TEXT NOT NULL,
		FOREIGN KEY (registration_id) REFERENCES registration(id)
	);

	CREATE INDEX IF NOT EXISTS idx_registration_instance ON registration(course_instance_id, status);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_registration_active_unique
		ON registration(member_id, course_instance_id)
		WHERE status IN ('registered', 'attended');
	CREATE INDEX IF NOT EXISTS idx_registration_member ON registration(member_id, status);
	CREATE INDEX IF NOT EXISTS idx_course_instance_date ON course_instance(course_date);
	CREATE INDEX IF NOT EXISTS idx_group_session_subscription ON group_session(subscription_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_entry_group ON ledger_entry(group_session_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
