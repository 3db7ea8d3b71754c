package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/staffdir/internal/editor"
	"github.com/mesh-intelligence/staffdir/internal/enrich"
	"github.com/mesh-intelligence/staffdir/internal/resolver"
	"github.com/mesh-intelligence/staffdir/internal/syncer"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// stubDirectory is an in-memory DirectoryClient.
type stubDirectory struct {
	mu      sync.Mutex
	records []types.Record
	people  []types.Person
	nextID  int64
}

func (s *stubDirectory) ListAll(context.Context) ([]types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Record{}, s.records...), nil
}

func (s *stubDirectory) GetPerson(_ context.Context, key string) (types.Person, error) {
	for _, p := range s.people {
		if p.Key == key {
			return p, nil
		}
	}
	return types.Person{}, types.ErrNotFound
}

func (s *stubDirectory) Add(_ context.Context, in types.NewRecord) (types.Record, error) {
	if err := types.ValidateLabel(in.Label); err != nil {
		return types.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec := types.Record{ID: s.nextID, Label: in.Label}
	if len(in.PersonRefs) > 0 {
		rec.PersonRef = in.PersonRefs[0]
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *stubDirectory) Update(_ context.Context, id int64, patch types.Patch) error {
	if err := types.ValidateLabel(patch.Label); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Label = patch.Label
			s.records[i].PersonRef = ""
			if len(patch.PersonRefs) > 0 {
				s.records[i].PersonRef = patch.PersonRefs[0]
			}
			return nil
		}
	}
	return fmt.Errorf("record %d: %w", id, types.ErrNotFound)
}

func (s *stubDirectory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("record %d: %w", id, types.ErrNotFound)
}

func (s *stubDirectory) SearchPeople(context.Context, string) []types.Person {
	return append([]types.Person{}, s.people...)
}

func newTestApp(t *testing.T) (*App, *stubDirectory) {
	t.Helper()
	dir := &stubDirectory{people: []types.Person{
		{Key: "p1", DisplayName: "Ada Lovelace"},
		{Key: "p2", DisplayName: "Grace Hopper"},
	}}
	ctx := context.Background()
	ctrl := syncer.New(dir, enrich.New(dir, 2, nil, nil), nil, nil)
	app := NewApp(ctx, ctrl, editor.New(ctrl, nil), resolver.New(dir, nil, nil))
	return runCommands(t, app, app.Init()), dir
}

// runCommands executes cmd and feeds its messages back into the model,
// expanding batches, until nothing is left to run.
func runCommands(t *testing.T, app *App, cmd tea.Cmd) *App {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		switch msg := msg.(type) {
		case nil:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case tea.QuitMsg:
			return app
		}
		model, more := app.Update(msg)
		var ok bool
		app, ok = model.(*App)
		require.True(t, ok, "unexpected model type %T", model)
		queue = append(queue, more)
	}
	return app
}

func press(t *testing.T, app *App, keys ...tea.KeyMsg) *App {
	t.Helper()
	for _, k := range keys {
		model, cmd := app.Update(k)
		app = runCommands(t, model.(*App), cmd)
	}
	return app
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	save  = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func TestInitLoadsRecords(t *testing.T) {
	app, dir := newTestApp(t)
	assert.Empty(t, app.vm.Records)

	dir.records = []types.Record{{ID: 1, Label: "Analyst", PersonRef: "p1"}}
	dir.nextID = 1
	app = press(t, app, runes("r"))
	require.Len(t, app.vm.Records, 1)
	assert.Equal(t, "Ada Lovelace", app.vm.Records[0].PersonDisplayName)
	assert.Contains(t, app.View(), "Analyst")
}

func TestCreateThroughEditor(t *testing.T) {
	app, dir := newTestApp(t)

	app = press(t, app, runes("n"))
	assert.Equal(t, editor.CreateDraft, app.editor.State())
	assert.Contains(t, app.View(), "New record")

	app = press(t, app, runes("Engineer"), enter)
	assert.Equal(t, editor.Closed, app.editor.State())
	require.Len(t, dir.records, 1)
	assert.Equal(t, "Engineer", dir.records[0].Label)
	require.Len(t, app.vm.Records, 1)
	assert.Equal(t, "Saved.", app.status)
}

func TestSubmitFailureKeepsEditorOpen(t *testing.T) {
	app, dir := newTestApp(t)

	app = press(t, app, runes("n"), enter)
	assert.Equal(t, editor.CreateDraft, app.editor.State())
	assert.Empty(t, dir.records)
	assert.Equal(t, "label must not be empty", app.editor.Snapshot().ErrorMessage)
	assert.Contains(t, app.View(), "label must not be empty")

	app = press(t, app, esc)
	assert.Equal(t, editor.Closed, app.editor.State())
}

func TestEditPicksPersonFromSuggestions(t *testing.T) {
	app, dir := newTestApp(t)
	dir.records = []types.Record{{ID: 4, Label: "Analyst"}}
	dir.nextID = 4
	app = press(t, app, runes("r"))

	app = press(t, app, runes("e"))
	id, ok := app.editor.RecordID()
	require.True(t, ok)
	assert.Equal(t, int64(4), id)
	assert.Equal(t, "Analyst", app.label.Value())

	app = press(t, app, tab, runes("grace"))
	s := app.resolver.Suggestions()
	assert.Equal(t, "grace", s.Text)
	require.Len(t, s.People, 1)

	app = press(t, app, enter)
	assert.Equal(t, "Grace Hopper", selectedNames(app.editor.Snapshot()))

	app = press(t, app, save)
	assert.Equal(t, editor.Closed, app.editor.State())
	assert.Equal(t, "p2", dir.records[0].PersonRef)
	assert.Equal(t, "Grace Hopper", app.vm.Records[0].PersonDisplayName)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	app, dir := newTestApp(t)
	dir.records = []types.Record{{ID: 1, Label: "one"}, {ID: 2, Label: "two"}}
	dir.nextID = 2
	app = press(t, app, runes("r"))

	app = press(t, app, runes("d"))
	assert.Equal(t, int64(1), app.pendingDelete)
	assert.Contains(t, app.View(), "Delete record 1?")

	app = press(t, app, runes("n"))
	assert.Len(t, dir.records, 2)
	assert.Equal(t, "Delete cancelled.", app.status)

	app = press(t, app, runes("d"), runes("y"))
	require.Len(t, dir.records, 1)
	assert.Equal(t, int64(2), dir.records[0].ID)
	assert.Len(t, app.vm.Records, 1)
	assert.True(t, strings.HasPrefix(app.status, "Deleted record 1"))
}

func TestStaleViewIsIgnored(t *testing.T) {
	app, _ := newTestApp(t)
	app.setView(types.ViewModel{Version: 5, Records: []types.Record{{ID: 9, Label: "new"}}})
	app.setView(types.ViewModel{Version: 3, Records: []types.Record{}})
	assert.Len(t, app.vm.Records, 1)
}

func TestSelectionAfterStartingEmpty(t *testing.T) {
	app, dir := newTestApp(t)
	require.Empty(t, app.vm.Records)
	_, ok := app.selected()
	assert.False(t, ok)

	dir.records = []types.Record{{ID: 4, Label: "four"}, {ID: 5, Label: "five"}}
	app = press(t, app, runes("r"))
	rec, ok := app.selected()
	require.True(t, ok)
	assert.Equal(t, int64(4), rec.ID)

	app = press(t, app, runes("e"))
	id, ok := app.editor.RecordID()
	require.True(t, ok)
	assert.Equal(t, int64(4), id)
}

func TestCursorFollowsShrinkingList(t *testing.T) {
	app, _ := newTestApp(t)
	app.setView(types.ViewModel{Version: 1, Records: []types.Record{{ID: 1}, {ID: 2}, {ID: 3}}})
	app.table.SetCursor(2)
	app.setView(types.ViewModel{Version: 2, Records: []types.Record{{ID: 1}}})
	assert.Equal(t, 0, app.table.Cursor())

	app.setView(types.ViewModel{Version: 3, Records: []types.Record{}})
	app.setView(types.ViewModel{Version: 4, Records: []types.Record{{ID: 7}}})
	rec, ok := app.selected()
	require.True(t, ok)
	assert.Equal(t, int64(7), rec.ID)
}

func TestQuit(t *testing.T) {
	app, _ := newTestApp(t)
	_, cmd := app.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
