package sqlite

// Schema DDL. Statements are idempotent so the database survives restarts.
const (
	createRecords = `CREATE TABLE IF NOT EXISTS records (
    record_id INTEGER PRIMARY KEY AUTOINCREMENT,
    list_name TEXT NOT NULL,
    label TEXT NOT NULL,
    person_key TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	// No foreign key from records.person_key: the people directory is
	// reloaded from people.jsonl and a person may disappear while records
	// still reference it.
	createPeople = `CREATE TABLE IF NOT EXISTS people (
    person_key TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    contact_info TEXT
);`
)

// Index DDL for common queries.
const (
	idxRecordsList       = `CREATE INDEX IF NOT EXISTS idx_records_list ON records(list_name, record_id);`
	idxPeopleDisplayName = `CREATE INDEX IF NOT EXISTS idx_people_display_name ON people(display_name);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createRecords,
	createPeople,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxRecordsList,
	idxPeopleDisplayName,
}
