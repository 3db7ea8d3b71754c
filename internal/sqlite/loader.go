package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// queryer is the read surface shared by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadPeopleJSONL replaces the people table with the contents of
// people.jsonl. Loading is transactional: all lines load or none do.
// Malformed lines, lines without a key or name, and unknown fields are
// skipped or ignored.
func loadPeopleJSONL(db *sql.DB, dataDir string) error {
	lines, err := readJSONL(filepath.Join(dataDir, peopleJSONL))
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM people"); err != nil {
		return fmt.Errorf("clearing people: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO people (person_key, display_name, contact_info) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing people insert: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		var row personRow
		if err := json.Unmarshal(line, &row); err != nil {
			continue
		}
		if row.PersonKey == "" || row.DisplayName == "" {
			continue
		}
		if _, err := stmt.Exec(row.PersonKey, row.DisplayName, nullable(row.ContactInfo)); err != nil {
			return fmt.Errorf("inserting person %q: %w", row.PersonKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}
