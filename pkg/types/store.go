package types

import (
	"context"
	"errors"
)

// LocalStore is a DirectoryClient that owns its storage. Callers attach to
// it with a Config and detach when done.
type LocalStore interface {
	DirectoryClient

	// Attach opens the store described by config, creating DataDir if it
	// does not exist. Returns ErrAlreadyAttached if already attached.
	Attach(config Config) error

	// Detach releases resources. Idempotent. After Detach, operations
	// return ErrStoreDetached.
	Detach() error

	// AddPerson registers a person in the directory and returns it with
	// its generated key.
	AddPerson(ctx context.Context, p Person) (Person, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
