// Package sqlite implements a local list store for staffdir on SQLite.
// Records live in staffdir.db; the people directory is loaded from
// people.jsonl in the data directory, which stays its source of truth.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// File names inside the data directory.
const (
	dbFileName  = "staffdir.db"
	peopleJSONL = "people.jsonl"
)

// Compile-time interface check: Backend must implement LocalStore.
var _ types.LocalStore = (*Backend)(nil)

// Backend is a types.LocalStore backed by SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	log      *logger.Logger

	// peopleMu serializes rewrites of people.jsonl.
	peopleMu sync.Mutex
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(log *logger.Logger) *Backend {
	if log == nil {
		log = logger.NewNop()
	}
	return &Backend{log: log.With("component", "sqlite")}
}

// Attach opens the database in config.DataDir, applies the schema and loads
// the people directory. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// Serialize access through one connection (SQLITE_BUSY otherwise).
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return err
	}

	if err := initPeopleJSONL(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadPeopleJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load people: %w", err)
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.attached = true
	b.log.Debug("attached", "data_dir", dataDir, "list", config.List)
	return nil
}

// Detach closes the database. Idempotent. After Detach every operation
// returns ErrStoreDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// conn returns the open database and the attached config, or
// ErrStoreDetached.
func (b *Backend) conn() (*sql.DB, types.Config, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.Config{}, types.ErrStoreDetached
	}
	return b.db, b.config, nil
}

func applySchema(db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	for _, stmt := range indexDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("applying index: %w", err)
		}
	}
	return nil
}

// generateUUID generates a new UUID v7 for person keys.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
