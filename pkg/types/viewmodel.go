package types

import "slices"

// ViewModel is the enriched, render-ready snapshot of all records. It is
// rebuilt in full after every fetch and replaced as a whole, never patched.
// Version orders snapshots; two refreshes of an unchanged store differ only
// in Version.
type ViewModel struct {
	Version uint64   `json:"version"`
	Records []Record `json:"records"`
}

// Clone returns a copy whose Records slice is not shared with the original.
func (vm ViewModel) Clone() ViewModel {
	out := vm
	out.Records = slices.Clone(vm.Records)
	return out
}

// Find returns the record with the given id.
func (vm ViewModel) Find(id int64) (Record, bool) {
	for _, r := range vm.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}
