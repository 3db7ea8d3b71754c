package types

import "slices"

// Draft is the transient, unsaved edit state of the record editor.
// Record is nil in create mode; EditMode is true iff Record is non-nil.
// Selected may hold several people, but only the first is committed on
// create.
type Draft struct {
	Record       *Record  `json:"record,omitempty"`
	Label        string   `json:"label"`
	Selected     []Person `json:"selected,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	Open         bool     `json:"open"`
	EditMode     bool     `json:"editMode"`
}

// Clone returns a deep copy of the draft so callers can hold it without
// observing later edits.
func (d Draft) Clone() Draft {
	out := d
	if d.Record != nil {
		rec := *d.Record
		out.Record = &rec
	}
	out.Selected = slices.Clone(d.Selected)
	return out
}

// SelectedKeys returns the keys of every selected person, skipping empty keys.
func (d Draft) SelectedKeys() []string {
	var keys []string
	for _, p := range d.Selected {
		if p.Key != "" {
			keys = append(keys, p.Key)
		}
	}
	return keys
}
