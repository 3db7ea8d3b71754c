package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staffdir/internal/editor"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Refresh once and print every record",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ctrl.Refresh(cmd.Context()); err != nil {
		return err
	}
	vm := a.ctrl.ViewModel()
	if flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), vm)
	}
	printRecords(cmd.OutOrStdout(), vm.Records)
	return nil
}

func newCreateCmd() *cobra.Command {
	var label, person string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.editor.OpenCreate(); err != nil {
				return err
			}
			var selection []types.Person
			if person != "" {
				selection = []types.Person{{Key: person}}
			}
			return submitDraft(cmd, a, label, selection)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "record label (required)")
	cmd.Flags().StringVar(&person, "person", "", "person key to link")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var label string
	var people []string
	var clearPerson bool
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a record's label or linked person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.ctrl.Refresh(cmd.Context()); err != nil {
				return err
			}
			rec, ok := a.ctrl.ViewModel().Find(id)
			if !ok {
				return fmt.Errorf("record %d: %w", id, types.ErrNotFound)
			}
			if err := a.editor.OpenEdit(rec); err != nil {
				return err
			}

			draft := a.editor.Snapshot()
			if cmd.Flags().Changed("label") {
				draft.Label = label
			}
			switch {
			case clearPerson:
				draft.Selected = nil
			case cmd.Flags().Changed("person"):
				draft.Selected = nil
				for _, key := range people {
					draft.Selected = append(draft.Selected, types.Person{Key: key})
				}
			}
			return submitDraft(cmd, a, draft.Label, draft.Selected)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "new label")
	cmd.Flags().StringSliceVar(&people, "person", nil, "person key(s) to link; repeat to send several")
	cmd.Flags().BoolVar(&clearPerson, "clear-person", false, "unlink the current person")
	return cmd
}

// submitDraft fills the open draft and submits it through the editor,
// printing the inline message on failure.
func submitDraft(cmd *cobra.Command, a *app, label string, selection []types.Person) error {
	if err := a.editor.FieldChanged(label); err != nil {
		return err
	}
	if err := a.editor.PersonsChanged(selection); err != nil {
		return err
	}
	mode := a.editor.State()
	id, _ := a.editor.RecordID()
	before := a.ctrl.ViewModel()

	if err := a.editor.Submit(cmd.Context()); err != nil {
		msg := a.editor.Snapshot().ErrorMessage
		a.editor.Dismiss()
		return fmt.Errorf("%s: %w", msg, err)
	}

	vm := a.ctrl.ViewModel()
	var rec types.Record
	var ok bool
	if mode == editor.EditDraft {
		rec, ok = vm.Find(id)
	} else {
		rec, ok = newest(before, vm)
	}
	out := cmd.OutOrStdout()
	if flags.jsonMode {
		if !ok {
			return printJSON(out, map[string]string{"status": "ok"})
		}
		return printJSON(out, rec)
	}
	if !ok {
		fmt.Fprintln(out, "Saved.")
		return nil
	}
	printRecord(out, rec)
	return nil
}

// newest returns the record present in after but not in before with the
// highest id.
func newest(before, after types.ViewModel) (types.Record, bool) {
	var best types.Record
	found := false
	for _, r := range after.Records {
		if _, existed := before.Find(r.ID); existed {
			continue
		}
		if !found || r.ID > best.ID {
			best, found = r, true
		}
	}
	return best, found
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.ctrl.Remove(cmd.Context(), id); err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %d\n", id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q: %w", s, types.ErrInvalidRecordID)
	}
	return id, nil
}
