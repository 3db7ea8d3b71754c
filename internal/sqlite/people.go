package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// personRow is the people.jsonl line format; field names match the columns.
type personRow struct {
	PersonKey   string `json:"person_key"`
	DisplayName string `json:"display_name"`
	ContactInfo string `json:"contact_info,omitempty"`
}

// GetPerson resolves a person key. Returns ErrNotFound if it does not exist.
func (b *Backend) GetPerson(ctx context.Context, key string) (types.Person, error) {
	db, _, err := b.conn()
	if err != nil {
		return types.Person{}, err
	}
	var (
		p       types.Person
		contact *string
	)
	err = db.QueryRowContext(ctx,
		"SELECT person_key, display_name, contact_info FROM people WHERE person_key = ?",
		key,
	).Scan(&p.Key, &p.DisplayName, &contact)
	if err != nil {
		if isNoRows(err) {
			return types.Person{}, fmt.Errorf("person %q: %w", key, types.ErrNotFound)
		}
		return types.Person{}, fmt.Errorf("getting person %q: %w", key, err)
	}
	if contact != nil {
		p.ContactInfo = *contact
	}
	return p, nil
}

// SearchPeople returns people whose display name contains text, ignoring
// case. Failures are logged and yield an empty slice.
func (b *Backend) SearchPeople(ctx context.Context, text string) []types.Person {
	people, err := b.searchPeople(ctx, text)
	if err != nil {
		b.log.Warn("people search failed", "text", text, "error", err)
		return []types.Person{}
	}
	return people
}

func (b *Backend) searchPeople(ctx context.Context, text string) ([]types.Person, error) {
	db, _, err := b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT person_key, display_name, contact_info FROM people
         WHERE lower(display_name) LIKE '%' || lower(?) || '%' ESCAPE '\'
         ORDER BY display_name, person_key`,
		escapeLike(text),
	)
	if err != nil {
		return nil, fmt.Errorf("searching people: %w", err)
	}
	defer rows.Close()

	people := []types.Person{}
	for rows.Next() {
		var (
			p       types.Person
			contact *string
		)
		if err := rows.Scan(&p.Key, &p.DisplayName, &contact); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		if contact != nil {
			p.ContactInfo = *contact
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// AddPerson inserts a person, generating a UUID v7 key when none is given,
// and rewrites people.jsonl so the directory survives the next Attach.
func (b *Backend) AddPerson(ctx context.Context, p types.Person) (types.Person, error) {
	db, cfg, err := b.conn()
	if err != nil {
		return types.Person{}, err
	}
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" {
		return types.Person{}, types.ErrPersonNameEmpty
	}
	if p.Key == "" {
		p.Key = generateUUID()
	}

	b.peopleMu.Lock()
	defer b.peopleMu.Unlock()

	if _, err := db.ExecContext(ctx,
		"INSERT OR REPLACE INTO people (person_key, display_name, contact_info) VALUES (?, ?, ?)",
		p.Key, p.DisplayName, nullable(p.ContactInfo),
	); err != nil {
		return types.Person{}, fmt.Errorf("inserting person: %w", err)
	}
	if err := b.persistPeopleJSONL(ctx, db, cfg.DataDir); err != nil {
		return types.Person{}, fmt.Errorf("persisting %s: %w", peopleJSONL, err)
	}
	return p, nil
}

// persistPeopleJSONL writes the whole people table to people.jsonl
// atomically. The caller must hold peopleMu.
func (b *Backend) persistPeopleJSONL(ctx context.Context, db queryer, dataDir string) error {
	rows, err := db.QueryContext(ctx,
		"SELECT person_key, display_name, contact_info FROM people ORDER BY person_key",
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var lines []json.RawMessage
	for rows.Next() {
		var (
			row     personRow
			contact *string
		)
		if err := rows.Scan(&row.PersonKey, &row.DisplayName, &contact); err != nil {
			return err
		}
		if contact != nil {
			row.ContactInfo = *contact
		}
		line, err := json.Marshal(row)
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(dataDir, peopleJSONL), lines)
}

// escapeLike escapes LIKE wildcards so text matches literally.
func escapeLike(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(text)
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
