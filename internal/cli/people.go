package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staffdir/pkg/types"
)

func newPeopleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "people",
		Short: "Search or extend the people directory",
	}
	cmd.AddCommand(newPeopleSearchCmd(), newPeopleAddCmd())
	return cmd
}

func newPeopleSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [TEXT]",
		Short: "List people whose name contains TEXT (case-insensitive)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			people := a.resolver.Resolve(cmd.Context(), strings.Join(args, " "))
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), people)
			}
			printPeople(cmd.OutOrStdout(), people)
			return nil
		},
	}
}

func newPeopleAddCmd() *cobra.Command {
	var name, email, key string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a person to the local directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.close()
			store, err := a.requireLocal("people add")
			if err != nil {
				return err
			}

			p, err := store.AddPerson(cmd.Context(), types.Person{Key: key, DisplayName: name, ContactInfo: email})
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), p)
			}
			printPeople(cmd.OutOrStdout(), []types.Person{p})
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&email, "email", "", "contact address")
	cmd.Flags().StringVar(&key, "key", "", "explicit person key (default: generated)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
