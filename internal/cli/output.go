package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mesh-intelligence/staffdir/pkg/types"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func personCell(r types.Record) string {
	switch {
	case r.PersonDisplayName != "":
		return r.PersonDisplayName
	case r.HasPerson():
		return "(" + r.PersonRef + ")"
	default:
		return ""
	}
}

func printRecords(w io.Writer, records []types.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "LABEL", "PERSON")
	for _, r := range records {
		t.Row(strconv.FormatInt(r.ID, 10), r.Label, personCell(r))
	}
	fmt.Fprintln(w, t.String())
}

func printRecord(w io.Writer, r types.Record) {
	fmt.Fprintf(w, "ID:     %d\nLabel:  %s\nPerson: %s\n", r.ID, r.Label, personCell(r))
}

func printPeople(w io.Writer, people []types.Person) {
	if len(people) == 0 {
		fmt.Fprintln(w, "No people found.")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KEY", "NAME", "CONTACT")
	for _, p := range people {
		t.Row(p.Key, p.DisplayName, p.ContactInfo)
	}
	fmt.Fprintln(w, t.String())
}
