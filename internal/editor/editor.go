// Package editor holds the record editor's state machine. The editor owns
// the draft; the presentation reads it through Snapshot and changes it only
// through the intent methods.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// State is the editor's state.
type State int

// Editor states. Closed is the initial state; there is no terminal state.
const (
	Closed State = iota
	CreateDraft
	EditDraft
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case CreateDraft:
		return "create"
	case EditDraft:
		return "edit"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Inline messages shown for submit failures that carry no store reason.
const (
	MsgNotFound    = "record no longer exists"
	MsgUnavailable = "the directory is unavailable, try again"
	MsgMalformed   = "the directory sent an unexpected response"
)

// Submitter commits drafts. The sync controller implements it.
type Submitter interface {
	Create(ctx context.Context, rec types.NewRecord) (types.Record, error)
	Update(ctx context.Context, id int64, patch types.Patch) error
}

// Editor is the record editor state machine. It is safe for concurrent use.
type Editor struct {
	submitter Submitter
	log       *logger.Logger

	mu         sync.Mutex
	state      State
	draft      types.Draft
	generation uint64
	// inFlight is the generation of the draft being submitted, 0 if none.
	inFlight uint64
}

// New returns an Editor in the Closed state.
func New(submitter Submitter, log *logger.Logger) *Editor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Editor{
		submitter: submitter,
		log:       log.With("component", "editor"),
	}
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// RecordID returns the id of the record being edited and whether the
// editor is in EditDraft.
func (e *Editor) RecordID() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditDraft {
		return 0, false
	}
	return e.draft.Record.ID, true
}

// Snapshot returns a copy of the current draft.
func (e *Editor) Snapshot() types.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// OpenCreate starts an empty create draft.
func (e *Editor) OpenCreate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Closed {
		return e.invalid("open create")
	}
	e.reset(CreateDraft, types.Draft{Open: true})
	return nil
}

// OpenEdit starts an edit draft for rec. The selection is seeded with the
// record's current person when it has one.
func (e *Editor) OpenEdit(rec types.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Closed {
		return e.invalid("open edit")
	}
	cp := rec
	d := types.Draft{Record: &cp, Label: rec.Label, Open: true, EditMode: true}
	if rec.HasPerson() {
		d.Selected = []types.Person{{Key: rec.PersonRef, DisplayName: rec.PersonDisplayName}}
	}
	e.reset(EditDraft, d)
	return nil
}

// Dismiss discards the draft. Dismissing a closed editor does nothing.
func (e *Editor) Dismiss() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Closed {
		return
	}
	e.reset(Closed, types.Draft{})
}

// FieldChanged replaces the draft label and clears the error message.
func (e *Editor) FieldChanged(label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Closed {
		return e.invalid("field changed")
	}
	e.draft.Label = label
	e.draft.ErrorMessage = ""
	return nil
}

// PersonsChanged replaces the selection and clears the error message.
func (e *Editor) PersonsChanged(selection []types.Person) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Closed {
		return e.invalid("persons changed")
	}
	e.draft.Selected = append([]types.Person(nil), selection...)
	e.draft.ErrorMessage = ""
	return nil
}

// Submit commits the draft. A create sends the first selected person; an
// update sends every selected person. On success the editor closes; on
// failure the error message is set, the state is kept and the error is
// returned. The lock is not held while the submitter runs, so the draft
// stays readable; a draft that was dismissed or reopened meanwhile is left
// alone.
func (e *Editor) Submit(ctx context.Context) error {
	e.mu.Lock()
	if e.state == Closed || e.inFlight == e.generation {
		err := e.invalid("submit")
		e.mu.Unlock()
		return err
	}
	state, draft, gen := e.state, e.draft.Clone(), e.generation
	e.inFlight = gen
	e.mu.Unlock()

	var err error
	keys := draft.SelectedKeys()
	switch state {
	case CreateDraft:
		if len(keys) > 1 {
			keys = keys[:1]
		}
		_, err = e.submitter.Create(ctx, types.NewRecord{Label: draft.Label, PersonRefs: keys})
	case EditDraft:
		err = e.submitter.Update(ctx, draft.Record.ID, types.Patch{Label: draft.Label, PersonRefs: keys})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight == gen {
		e.inFlight = 0
	}
	if e.generation != gen {
		e.log.Debug("submit finished for a discarded draft", "state", state, "error", err)
		return err
	}
	if err != nil {
		e.draft.ErrorMessage = Message(err)
		e.log.Info("submit failed", "state", state, "error", err)
		return err
	}
	e.reset(Closed, types.Draft{})
	return nil
}

// Message maps a submit error to the inline text shown in the editor.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, types.ErrValidationRejected):
		return types.RejectionReason(err)
	case errors.Is(err, types.ErrNotFound):
		return MsgNotFound
	case errors.Is(err, types.ErrRemoteUnavailable):
		return MsgUnavailable
	case errors.Is(err, types.ErrMalformedPayload):
		return MsgMalformed
	default:
		return err.Error()
	}
}

// reset moves to state with draft d. The caller holds mu.
func (e *Editor) reset(state State, d types.Draft) {
	e.state = state
	e.draft = d
	e.generation++
}

func (e *Editor) invalid(intent string) error {
	return fmt.Errorf("%s in state %s: %w", intent, e.state, types.ErrInvalidTransition)
}
