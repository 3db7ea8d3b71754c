// Package tui is the interactive terminal front end: a record table plus a
// modal editor with a people picker. It renders the controller's ViewModel
// and the editor's draft, and talks back only through their intents.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mesh-intelligence/staffdir/internal/editor"
	"github.com/mesh-intelligence/staffdir/internal/resolver"
	"github.com/mesh-intelligence/staffdir/internal/syncer"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// field is the focused input inside the editor.
type field int

const (
	fieldLabel field = iota
	fieldPerson
)

// Messages produced by commands. None of them mutate the model outside
// Update.
type (
	viewMsg      types.ViewModel
	refreshedMsg struct{ err error }
	submittedMsg struct{ err error }
	removedMsg   struct {
		id  int64
		err error
	}
	suggestedMsg struct{}
)

// App is the bubbletea model.
type App struct {
	ctx      context.Context
	ctrl     *syncer.Controller
	editor   *editor.Editor
	resolver *resolver.Resolver

	vm     types.ViewModel
	table  table.Model
	label  textinput.Model
	person textinput.Model
	focus  field
	pick   int

	pendingDelete int64
	busy          bool
	status        string
	width         int
	height        int
}

// NewApp builds the model. The caller wires ctrl's render callback to the
// program (see Run).
func NewApp(ctx context.Context, ctrl *syncer.Controller, ed *editor.Editor, res *resolver.Resolver) *App {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	t.SetStyles(tableStyles())

	return &App{
		ctx:      ctx,
		ctrl:     ctrl,
		editor:   ed,
		resolver: res,
		vm:       ctrl.ViewModel(),
		table:    t,
		label:    newInput("Label", types.MaxLabelLength),
		person:   newInput("Type to search people", 64),
	}
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, ctrl *syncer.Controller, ed *editor.Editor, res *resolver.Resolver) error {
	app := NewApp(ctx, ctrl, ed, res)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	ctrl.OnRender(func(vm types.ViewModel) { p.Send(viewMsg(vm)) })
	_, err := p.Run()
	return err
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.refresh()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.table.SetColumns(columns(msg.Width))
		a.table.SetHeight(max(3, msg.Height-12))
		return a, nil

	case viewMsg:
		a.setView(types.ViewModel(msg))
		return a, nil

	case refreshedMsg:
		a.busy = false
		a.status = ""
		if msg.err != nil {
			a.status = "Refresh failed; showing the last loaded list."
		}
		// Cover programs started without a render callback.
		a.setView(a.ctrl.ViewModel())
		return a, nil

	case submittedMsg:
		a.busy = false
		if msg.err == nil {
			a.closeEditor()
			a.status = "Saved."
		}
		a.setView(a.ctrl.ViewModel())
		return a, nil

	case removedMsg:
		a.busy = false
		if msg.err != nil {
			a.status = fmt.Sprintf("Delete of record %d failed.", msg.id)
		} else {
			a.status = fmt.Sprintf("Deleted record %d.", msg.id)
		}
		a.setView(a.ctrl.ViewModel())
		return a, nil

	case suggestedMsg:
		if n := len(a.resolver.Suggestions().People); a.pick >= n {
			a.pick = max(0, n-1)
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch {
		case a.editor.State() != editor.Closed:
			return a, a.updateEditor(msg)
		case a.pendingDelete != 0:
			return a, a.updateConfirm(msg)
		default:
			return a, a.updateBrowse(msg)
		}
	}
	return a, nil
}

func (a *App) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "r":
		return a.refresh()
	case "n":
		if err := a.editor.OpenCreate(); err != nil {
			a.status = err.Error()
			return nil
		}
		a.openEditor("")
		return a.suggest("")
	case "e", "enter":
		rec, ok := a.selected()
		if !ok {
			return nil
		}
		if err := a.editor.OpenEdit(rec); err != nil {
			a.status = err.Error()
			return nil
		}
		a.openEditor(rec.Label)
		return a.suggest("")
	case "d", "delete":
		if rec, ok := a.selected(); ok {
			a.pendingDelete = rec.ID
		}
		return nil
	}
	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return cmd
}

func (a *App) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	id := a.pendingDelete
	a.pendingDelete = 0
	if msg.String() != "y" {
		a.status = "Delete cancelled."
		return nil
	}
	return a.remove(id)
}

func (a *App) updateEditor(msg tea.KeyMsg) tea.Cmd {
	if a.busy {
		return nil
	}
	switch msg.String() {
	case "esc":
		a.editor.Dismiss()
		a.closeEditor()
		return nil
	case "tab", "shift+tab":
		a.toggleFocus()
		return nil
	case "ctrl+s":
		return a.submit()
	case "ctrl+x":
		_ = a.editor.PersonsChanged(nil)
		return nil
	case "up", "down":
		if a.focus == fieldPerson {
			n := len(a.resolver.Suggestions().People)
			if msg.String() == "up" && a.pick > 0 {
				a.pick--
			}
			if msg.String() == "down" && a.pick < n-1 {
				a.pick++
			}
			return nil
		}
	case "enter":
		if a.focus == fieldPerson {
			people := a.resolver.Suggestions().People
			if a.pick < len(people) {
				_ = a.editor.PersonsChanged([]types.Person{people[a.pick]})
				a.person.SetValue("")
				a.toggleFocus()
			}
			return nil
		}
		return a.submit()
	}

	var cmd tea.Cmd
	if a.focus == fieldLabel {
		a.label, cmd = a.label.Update(msg)
		_ = a.editor.FieldChanged(a.label.Value())
		return cmd
	}
	before := a.person.Value()
	a.person, cmd = a.person.Update(msg)
	if a.person.Value() != before {
		a.pick = 0
		return tea.Batch(cmd, a.suggest(a.person.Value()))
	}
	return cmd
}

func (a *App) refresh() tea.Cmd {
	a.busy = true
	a.status = "Refreshing..."
	return func() tea.Msg {
		return refreshedMsg{err: a.ctrl.Refresh(a.ctx)}
	}
}

func (a *App) submit() tea.Cmd {
	a.busy = true
	return func() tea.Msg {
		return submittedMsg{err: a.editor.Submit(a.ctx)}
	}
}

func (a *App) remove(id int64) tea.Cmd {
	a.busy = true
	a.status = fmt.Sprintf("Deleting record %d...", id)
	return func() tea.Msg {
		return removedMsg{id: id, err: a.ctrl.Remove(a.ctx, id)}
	}
}

// suggest tags the search before the command runs so that keystroke order
// decides which result stays visible.
func (a *App) suggest(text string) tea.Cmd {
	seq := a.resolver.Begin()
	return func() tea.Msg {
		a.resolver.SuggestAt(a.ctx, seq, text)
		return suggestedMsg{}
	}
}

func (a *App) openEditor(label string) {
	a.status = ""
	a.label.SetValue(label)
	a.person.SetValue("")
	a.pick = 0
	a.focus = fieldLabel
	a.label.Focus()
	a.person.Blur()
	a.table.Blur()
}

func (a *App) closeEditor() {
	a.label.Blur()
	a.person.Blur()
	a.table.Focus()
}

func (a *App) toggleFocus() {
	if a.focus == fieldLabel {
		a.focus = fieldPerson
		a.label.Blur()
		a.person.Focus()
		return
	}
	a.focus = fieldLabel
	a.person.Blur()
	a.label.Focus()
}

func (a *App) setView(vm types.ViewModel) {
	if vm.Version < a.vm.Version {
		return
	}
	a.vm = vm
	rows := make([]table.Row, 0, len(vm.Records))
	for _, r := range vm.Records {
		rows = append(rows, table.Row{strconv.FormatInt(r.ID, 10), r.Label, personName(r)})
	}
	a.table.SetRows(rows)
	// SetCursor on an empty table parks the cursor at -1.
	switch {
	case len(rows) == 0:
	case a.table.Cursor() < 0:
		a.table.SetCursor(0)
	case a.table.Cursor() >= len(rows):
		a.table.SetCursor(len(rows) - 1)
	}
}

func (a *App) selected() (types.Record, bool) {
	row := a.table.SelectedRow()
	if row == nil {
		return types.Record{}, false
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return types.Record{}, false
	}
	return a.vm.Find(id)
}

func personName(r types.Record) string {
	switch {
	case r.PersonDisplayName != "":
		return r.PersonDisplayName
	case r.HasPerson():
		return "(unresolved)"
	default:
		return ""
	}
}

func selectedNames(d types.Draft) string {
	if len(d.Selected) == 0 {
		return "none"
	}
	names := make([]string, 0, len(d.Selected))
	for _, p := range d.Selected {
		name := p.DisplayName
		if name == "" {
			name = p.Key
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
