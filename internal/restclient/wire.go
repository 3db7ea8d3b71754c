package restclient

import (
	"fmt"

	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// Wire types of the list-store REST protocol. Fields are pointers so the
// decode step can tell a missing field from a zero value.

// Item is a list item as sent by the store.
type Item struct {
	ID       *int64  `json:"Id"`
	Title    *string `json:"Title"`
	PersonID *string `json:"PersonId"`
}

// ItemPage is one page of list items.
type ItemPage struct {
	Value    *[]Item `json:"value"`
	NextLink string  `json:"nextLink,omitempty"`
}

// User is a person as sent by the store.
type User struct {
	Key   *string `json:"Key"`
	Title *string `json:"Title"`
	Email string  `json:"Email,omitempty"`
}

// UserPage is a people search result.
type UserPage struct {
	Value *[]User `json:"value"`
}

// Payload is the body of add and update requests.
type Payload struct {
	Title    string   `json:"Title"`
	PersonID KeyBatch `json:"PersonId"`
}

// KeyBatch carries person keys in the store's multi-value envelope.
type KeyBatch struct {
	Results []string `json:"results"`
}

// ErrorBody is the store's error envelope.
type ErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewPayload builds a request body; Results is never null on the wire.
func NewPayload(title string, keys []string) Payload {
	results := make([]string, 0, len(keys))
	results = append(results, keys...)
	return Payload{Title: title, PersonID: KeyBatch{Results: results}}
}

// EncodeItem converts a record to its wire form.
func EncodeItem(r types.Record) Item {
	id := r.ID
	title := r.Label
	item := Item{ID: &id, Title: &title}
	if r.PersonRef != "" {
		ref := r.PersonRef
		item.PersonID = &ref
	}
	return item
}

// EncodeUser converts a person to its wire form.
func EncodeUser(p types.Person) User {
	key := p.Key
	title := p.DisplayName
	return User{Key: &key, Title: &title, Email: p.ContactInfo}
}

// DecodeItem validates a wire item and produces a Record. Missing or
// non-positive ids and missing titles yield ErrMalformedPayload.
func DecodeItem(it Item) (types.Record, error) {
	if it.ID == nil || *it.ID <= 0 {
		return types.Record{}, fmt.Errorf("%w: item without a valid Id", types.ErrMalformedPayload)
	}
	if it.Title == nil {
		return types.Record{}, fmt.Errorf("%w: item %d without Title", types.ErrMalformedPayload, *it.ID)
	}
	rec := types.Record{ID: *it.ID, Label: *it.Title}
	if it.PersonID != nil {
		rec.PersonRef = *it.PersonID
	}
	return rec, nil
}

// DecodeUser validates a wire user and produces a Person.
func DecodeUser(u User) (types.Person, error) {
	if u.Key == nil || *u.Key == "" {
		return types.Person{}, fmt.Errorf("%w: user without Key", types.ErrMalformedPayload)
	}
	if u.Title == nil {
		return types.Person{}, fmt.Errorf("%w: user %q without Title", types.ErrMalformedPayload, *u.Key)
	}
	return types.Person{Key: *u.Key, DisplayName: *u.Title, ContactInfo: u.Email}, nil
}
