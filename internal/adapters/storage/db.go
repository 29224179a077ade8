package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one ordered schema step. Steps must be idempotent so a
// database created before version tracking can be brought forward.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

var migrations = []migration{
	{1, "baseline schema", migrateBaseline},
	{2, "booking and attendance lookup indexes", migrateLookupIndexes},
}

// LatestSchemaVersion returns the version the migration chain ends at.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the applied schema version, 0 for an untracked database.
// PRE: db is a valid database connection
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema_version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB brings the schema up to LatestSchemaVersion.
// PRE: db is a valid database connection
// POST: WAL and foreign keys enabled, every pending migration applied in its own transaction
func MigrateDB(db *sql.DB, path string) error {
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version, description) VALUES (?, ?)", m.version, m.description); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: record version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		slog.Info("schema_migrated", "version", m.version, "description", m.description)
	}
	return nil
}

func migrateBaseline(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		user_type TEXT NOT NULL,
		is_instructor INTEGER NOT NULL DEFAULT 0,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		birth_date TEXT NOT NULL DEFAULT '',
		emergency_contact_name TEXT NOT NULL DEFAULT '',
		emergency_contact_phone TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT
	);

	CREATE TABLE IF NOT EXISTS booking (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		user_type TEXT NOT NULL,
		date TEXT NOT NULL,
		time_slot TEXT NOT NULL,
		shop_area TEXT NOT NULL,
		rate_charged TEXT NOT NULL,
		rate_label TEXT NOT NULL,
		booked_by_admin INTEGER NOT NULL DEFAULT 0,
		admin_id TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES account(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS class_offering (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		instructor_id TEXT,
		sessions TEXT NOT NULL,
		max_capacity INTEGER NOT NULL,
		price TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS enrolled_student (
		id TEXT PRIMARY KEY,
		class_id TEXT NOT NULL,
		user_id TEXT,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		enrolled_at TEXT NOT NULL,
		FOREIGN KEY (class_id) REFERENCES class_offering(id) ON DELETE CASCADE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_enrolled_student_class_user
		ON enrolled_student(class_id, user_id) WHERE user_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		class_id TEXT NOT NULL,
		enrolled_student_id TEXT NOT NULL,
		session_date TEXT NOT NULL,
		present INTEGER NOT NULL DEFAULT 0,
		checked_in_at TEXT,
		marked_by TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		UNIQUE (class_id, enrolled_student_id, session_date),
		FOREIGN KEY (class_id) REFERENCES class_offering(id) ON DELETE CASCADE,
		FOREIGN KEY (enrolled_student_id) REFERENCES enrolled_student(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS certification (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		shop_area TEXT NOT NULL,
		granted_by TEXT NOT NULL,
		source TEXT NOT NULL,
		granted_at TEXT NOT NULL,
		UNIQUE (user_id, shop_area),
		FOREIGN KEY (user_id) REFERENCES account(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS purchase (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		due_date TEXT,
		paid_at TEXT,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES account(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		resource_type TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func migrateLookupIndexes(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE INDEX IF NOT EXISTS idx_booking_slot ON booking(shop_area, date, time_slot);
	CREATE INDEX IF NOT EXISTS idx_booking_user ON booking(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(class_id, enrolled_student_id, present);
	CREATE INDEX IF NOT EXISTS idx_audit_event_timestamp ON audit_event(timestamp);
	`)
	return err
}
