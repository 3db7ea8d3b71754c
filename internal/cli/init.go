package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/internal/paths"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

type initFlags struct {
	backend  string
	endpoint string
	list     string
}

func newInitCmd() *cobra.Command {
	var f initFlags
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml and initialize the local store",
		Long: "Create the configuration directory and a config.yaml (kept if it already exists),\n" +
			"then create the local SQLite store and people.jsonl in the data directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.backend, "backend", types.BackendSQLite, "backend to write into config.yaml (sqlite|http)")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "list store endpoint for the http backend")
	cmd.Flags().StringVar(&f.list, "list", types.DefaultList, "list name")
	return cmd
}

func runInit(cmd *cobra.Command, f initFlags) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return sysErrorf("resolve config dir: %w", err)
	}

	cf := defaultConfigFile()
	cf.Backend = f.backend
	cf.Endpoint = f.endpoint
	cf.List = f.list
	if flags.dataDir != "" {
		cf.DataDir = flags.dataDir
	}
	probe := types.Config{Backend: cf.Backend, Endpoint: cf.Endpoint, List: cf.List}
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysErrorf("create config directory: %w", err)
	}
	configPath := paths.ConfigFile(configDir)
	written, err := writeConfigIfMissing(configPath, cf)
	if err != nil {
		return sysErrorf("write config: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Backend == types.BackendSQLite {
		b, err := attachLocal(cfg, logger.NewNop())
		if err != nil {
			return err
		}
		if err := b.Detach(); err != nil {
			return sysErrorf("finalize storage: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return printJSON(out, map[string]any{
			"config":         configPath,
			"config_written": written,
			"backend":        cfg.Backend,
			"data_dir":       cfg.DataDir,
		})
	}
	if written {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	} else {
		fmt.Fprintf(out, "Kept existing %s\n", configPath)
	}
	fmt.Fprintf(out, "staffdir initialized (backend %s, data dir %s)\n", cfg.Backend, cfg.DataDir)
	return nil
}
