package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staffdir/internal/tui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit records interactively",
		Long:  "Open the interactive terminal front end. Logs go to staffdir.log in the data directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{logToFile: true})
			if err != nil {
				return err
			}
			defer a.close()
			return tui.Run(cmd.Context(), a.ctrl, a.editor, a.resolver)
		},
	}
}
