package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/staffdir/pkg/types"
)

const recordColumns = "record_id, label, person_key"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func hydrateRecord(row rowScanner) (types.Record, error) {
	var (
		rec       types.Record
		personKey *string
	)
	if err := row.Scan(&rec.ID, &rec.Label, &personKey); err != nil {
		return types.Record{}, err
	}
	if personKey != nil {
		rec.PersonRef = *personKey
	}
	return rec, nil
}

// ListAll returns every record of the attached list in id order.
func (b *Backend) ListAll(ctx context.Context) ([]types.Record, error) {
	db, cfg, err := b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE list_name = ? ORDER BY record_id",
		cfg.List,
	)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		rec, err := hydrateRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// ListPage returns up to limit records with an id greater than after, and
// whether more records follow. It backs the server's keyset paging.
func (b *Backend) ListPage(ctx context.Context, after int64, limit int) ([]types.Record, bool, error) {
	db, cfg, err := b.conn()
	if err != nil {
		return nil, false, err
	}
	if limit <= 0 {
		limit = types.DefaultPageSize
	}
	rows, err := db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE list_name = ? AND record_id > ? ORDER BY record_id LIMIT ?",
		cfg.List, after, limit+1,
	)
	if err != nil {
		return nil, false, fmt.Errorf("listing record page: %w", err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		rec, err := hydrateRecord(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating records: %w", err)
	}
	more := len(records) > limit
	if more {
		records = records[:limit]
	}
	return records, more, nil
}

// Get returns a single record by id. Returns ErrNotFound if it does not exist.
func (b *Backend) Get(ctx context.Context, id int64) (types.Record, error) {
	db, cfg, err := b.conn()
	if err != nil {
		return types.Record{}, err
	}
	row := db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE list_name = ? AND record_id = ?",
		cfg.List, id,
	)
	rec, err := hydrateRecord(row)
	if err != nil {
		if isNoRows(err) {
			return types.Record{}, fmt.Errorf("record %d: %w", id, types.ErrNotFound)
		}
		return types.Record{}, fmt.Errorf("getting record %d: %w", id, err)
	}
	return rec, nil
}

// Add validates and inserts a record, returning it with its assigned id.
func (b *Backend) Add(ctx context.Context, in types.NewRecord) (types.Record, error) {
	db, cfg, err := b.conn()
	if err != nil {
		return types.Record{}, err
	}
	label, personKey, err := b.validatePayload(ctx, in.Label, in.PersonRefs)
	if err != nil {
		return types.Record{}, err
	}

	now := timestamp()
	res, err := db.ExecContext(ctx,
		"INSERT INTO records (list_name, label, person_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		cfg.List, label, nullable(personKey), now, now,
	)
	if err != nil {
		return types.Record{}, fmt.Errorf("inserting record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Record{}, fmt.Errorf("reading record id: %w", err)
	}
	return types.Record{ID: id, Label: label, PersonRef: personKey}, nil
}

// Update replaces the label and person reference of record id.
// Existence is checked before the payload so a vanished record always
// reports ErrNotFound.
func (b *Backend) Update(ctx context.Context, id int64, patch types.Patch) error {
	db, cfg, err := b.conn()
	if err != nil {
		return err
	}
	if _, err := b.Get(ctx, id); err != nil {
		return err
	}
	label, personKey, err := b.validatePayload(ctx, patch.Label, patch.PersonRefs)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		"UPDATE records SET label = ?, person_key = ?, updated_at = ? WHERE list_name = ? AND record_id = ?",
		label, nullable(personKey), timestamp(), cfg.List, id,
	)
	if err != nil {
		return fmt.Errorf("updating record %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// Delete removes record id. Returns ErrNotFound if it does not exist.
func (b *Backend) Delete(ctx context.Context, id int64) error {
	db, cfg, err := b.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		"DELETE FROM records WHERE list_name = ? AND record_id = ?",
		cfg.List, id,
	)
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("record %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// validatePayload applies the store rules shared by Add and Update and
// returns the normalized label and person key.
func (b *Backend) validatePayload(ctx context.Context, label string, refs []string) (string, string, error) {
	if err := types.ValidateLabel(label); err != nil {
		return "", "", err
	}
	label = strings.TrimSpace(label)

	switch len(refs) {
	case 0:
		return label, "", nil
	case 1:
	default:
		return "", "", types.ErrTooManyPeople
	}

	key := strings.TrimSpace(refs[0])
	if key == "" {
		return "", "", types.ErrUnknownPerson
	}
	if _, err := b.GetPerson(ctx, key); err != nil {
		if isNotFound(err) {
			return "", "", fmt.Errorf("person %q: %w", key, types.ErrUnknownPerson)
		}
		return "", "", err
	}
	return label, key, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
