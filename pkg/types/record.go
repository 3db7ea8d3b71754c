package types

import "strings"

// MaxLabelLength is the longest label a list store accepts.
const MaxLabelLength = 255

// Record is a directory entry persisted in the remote list store.
type Record struct {
	ID                int64  `json:"id"`                          // Store-assigned, immutable once created.
	Label             string `json:"label"`                       // Primary descriptive field.
	PersonRef         string `json:"personRef,omitempty"`         // Opaque Person key; empty means unassigned.
	PersonDisplayName string `json:"personDisplayName,omitempty"` // Derived by enrichment; never sent to the store.
}

// HasPerson reports whether the record references a person.
func (r Record) HasPerson() bool {
	return r.PersonRef != ""
}

// Person is a directory-of-people entity referenced by Records.
// It is read-only reference data.
type Person struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	ContactInfo string `json:"contactInfo,omitempty"`
}

// NewRecord is the payload for DirectoryClient.Add.
type NewRecord struct {
	Label      string   `json:"label"`
	PersonRefs []string `json:"personRefs,omitempty"`
}

// Patch is the payload for DirectoryClient.Update. Only the label and the
// person reference of a record are mutable.
type Patch struct {
	Label      string   `json:"label"`
	PersonRefs []string `json:"personRefs,omitempty"`
}

// ValidateLabel applies the list store's label rules. It returns an error
// wrapping ErrValidationRejected when the label is empty or too long.
func ValidateLabel(label string) error {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return ErrLabelEmpty
	}
	if len([]rune(trimmed)) > MaxLabelLength {
		return ErrLabelTooLong
	}
	return nil
}
