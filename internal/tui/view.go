package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/mesh-intelligence/staffdir/internal/editor"
)

var (
	accent = lipgloss.Color("#5B8DEF")
	muted  = lipgloss.Color("#888888")
	alert  = lipgloss.Color("#FF6B6B")
	frame  = lipgloss.Color("#444444")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	hintStyle   = lipgloss.NewStyle().Foreground(muted).MarginTop(1)
	errorStyle  = lipgloss.NewStyle().Foreground(alert)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(frame).Padding(0, 1)
	pickStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(frame).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(accent)
	return s
}

// columns splits width between the label and person columns.
func columns(width int) []table.Column {
	rest := max(20, width-14)
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Label", Width: rest * 3 / 5},
		{Title: "Person", Width: rest * 2 / 5},
	}
}

// View renders the model.
func (a *App) View() string {
	header := headerStyle.Render(fmt.Sprintf("staffdir · %d records", len(a.vm.Records)))
	sections := []string{header, boxStyle.Render(a.table.View())}

	switch {
	case a.editor.State() != editor.Closed:
		sections = append(sections, a.renderEditor())
	case a.pendingDelete != 0:
		sections = append(sections, errorStyle.Render(fmt.Sprintf("Delete record %d? (y/n)", a.pendingDelete)))
	default:
		sections = append(sections, hintStyle.Render("n new · e edit · d delete · r refresh · q quit"))
	}
	if a.status != "" {
		sections = append(sections, hintStyle.Render(a.status))
	}
	return strings.Join(sections, "\n")
}

func (a *App) renderEditor() string {
	d := a.editor.Snapshot()
	title := "New record"
	if id, ok := a.editor.RecordID(); ok {
		title = fmt.Sprintf("Edit record %d", id)
	}

	lines := []string{
		headerStyle.Render(title),
		"Label:  " + a.label.View(),
		"Person: " + selectedNames(d),
		"Search: " + a.person.View(),
	}
	if a.focus == fieldPerson {
		for i, p := range a.resolver.Suggestions().People {
			line := "  " + p.DisplayName
			if i == a.pick {
				line = pickStyle.Render("> " + p.DisplayName)
			}
			lines = append(lines, line)
		}
	}
	if d.ErrorMessage != "" {
		lines = append(lines, errorStyle.Render(d.ErrorMessage))
	}
	if a.busy {
		lines = append(lines, hintStyle.Render("Saving..."))
	} else {
		lines = append(lines, hintStyle.Render("enter save · tab switch field · ctrl+x clear person · esc cancel"))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
