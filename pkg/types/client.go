package types

import (
	"context"
	"errors"
)

// DirectoryClient provides typed operations against the list store holding
// Records and the directory of people. Implementations are constructed once
// and shared by every caller.
type DirectoryClient interface {
	// ListAll returns every record, following all pages, in store order.
	// Returns ErrRemoteUnavailable if the store cannot be reached.
	ListAll(ctx context.Context) ([]Record, error)

	// GetPerson resolves a person key.
	// Returns ErrNotFound if the key no longer resolves.
	GetPerson(ctx context.Context, key string) (Person, error)

	// Add creates a record and returns it with its store-assigned ID.
	// Returns ErrValidationRejected if the store rejects the payload.
	Add(ctx context.Context, rec NewRecord) (Record, error)

	// Update replaces the label and person reference of a record.
	// Returns ErrNotFound if id no longer exists, ErrValidationRejected if
	// the store rejects the payload.
	Update(ctx context.Context, id int64, patch Patch) error

	// Delete removes a record. Returns ErrNotFound if id does not exist.
	Delete(ctx context.Context, id int64) error

	// SearchPeople returns people matching text. It never fails: transport
	// errors yield an empty slice.
	SearchPeople(ctx context.Context, text string) []Person
}

// Directory operation errors.
var (
	ErrRemoteUnavailable  = errors.New("remote store unavailable")
	ErrNotFound           = errors.New("not found")
	ErrValidationRejected = errors.New("validation rejected")
	ErrMalformedPayload   = errors.New("malformed payload")
)

// Store validation errors. Each wraps ErrValidationRejected so callers only
// need to test for the kind.
var (
	ErrLabelEmpty      = validationError("label must not be empty")
	ErrLabelTooLong    = validationError("label is too long")
	ErrTooManyPeople   = validationError("at most one person may be referenced")
	ErrUnknownPerson   = validationError("referenced person does not exist")
	ErrPersonNameEmpty = validationError("person name must not be empty")
	ErrInvalidRecordID = validationError("invalid record id")
)

// Editor errors.
var (
	ErrInvalidTransition = errors.New("invalid editor transition")
)

type rejection struct {
	msg string
}

func validationError(msg string) error {
	return &rejection{msg: msg}
}

func (r *rejection) Error() string { return r.msg }

func (r *rejection) Unwrap() error { return ErrValidationRejected }

// Rejected builds a validation error carrying a store-supplied reason. It
// wraps ErrValidationRejected.
func Rejected(reason string) error {
	return &rejection{msg: reason}
}

// RejectionReason returns the store's reason for a validation rejection,
// or "" when err is not one.
func RejectionReason(err error) string {
	var r *rejection
	if errors.As(err, &r) {
		return r.msg
	}
	if errors.Is(err, ErrValidationRejected) {
		return err.Error()
	}
	return ""
}
