package db

// SchemaVersion is the current database schema version
const SchemaVersion = 3

const schema = `
CREATE TABLE IF NOT EXISTS servers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    base_url TEXT NOT NULL,
    client_id TEXT NOT NULL DEFAULT '',
    scope TEXT NOT NULL DEFAULT '',
    auth_token TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    indico_id INTEGER NOT NULL,
    server_id INTEGER NOT NULL REFERENCES servers(id),
    title TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL DEFAULT '',
    deleted INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS regforms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    indico_id INTEGER NOT NULL,
    event_id INTEGER NOT NULL REFERENCES events(id),
    title TEXT NOT NULL DEFAULT '',
    is_open INTEGER NOT NULL DEFAULT 0,
    registration_count INTEGER NOT NULL DEFAULT 0,
    checked_in_count INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS participants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    indico_id INTEGER NOT NULL,
    regform_id INTEGER NOT NULL REFERENCES regforms(id),
    full_name TEXT NOT NULL DEFAULT '',
    registration_date TEXT NOT NULL DEFAULT '',
    registration_data TEXT NOT NULL DEFAULT '[]',
    state TEXT NOT NULL DEFAULT 'complete',
    checkin_secret TEXT NOT NULL DEFAULT '',
    checked_in INTEGER NOT NULL DEFAULT 0,
    checked_in_dt TEXT,
    occupied_slots INTEGER NOT NULL DEFAULT 1,
    price REAL NOT NULL DEFAULT 0,
    currency TEXT NOT NULL DEFAULT '',
    formatted_price TEXT NOT NULL DEFAULT '',
    is_paid INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    deleted INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_remote ON events(server_id, indico_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_regforms_remote ON regforms(event_id, indico_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_remote ON participants(regform_id, indico_id);
CREATE INDEX IF NOT EXISTS idx_participants_secret ON participants(checkin_secret);

CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Migration defines a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
	// Column, when set, skips the migration if the column already exists
	// on Table. ALTER TABLE ADD COLUMN is not idempotent in SQLite.
	Table  string
	Column string
}

// Migrations is the list of all database migrations in order
var Migrations = []Migration{
	{
		Version:     2,
		Description: "Index participants by check-in secret for ticket scans",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_participants_secret ON participants(checkin_secret);`,
	},
	{
		Version:     3,
		Description: "Add occupied_slots to participants",
		SQL:         `ALTER TABLE participants ADD COLUMN occupied_slots INTEGER NOT NULL DEFAULT 1;`,
		Table:       "participants",
		Column:      "occupied_slots",
	},
}
