package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/staffdir/internal/editor"
	"github.com/mesh-intelligence/staffdir/internal/enrich"
	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/internal/metrics"
	"github.com/mesh-intelligence/staffdir/internal/resolver"
	"github.com/mesh-intelligence/staffdir/internal/restclient"
	"github.com/mesh-intelligence/staffdir/internal/sqlite"
	"github.com/mesh-intelligence/staffdir/internal/syncer"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// app is the wired component graph for one command invocation. The
// directory client is built once here and shared by every component.
type app struct {
	cfg      types.Config
	log      *logger.Logger
	client   types.DirectoryClient
	local    *sqlite.Backend // nil for the http backend
	ctrl     *syncer.Controller
	editor   *editor.Editor
	resolver *resolver.Resolver
}

// appOptions tweak openApp for particular commands.
type appOptions struct {
	// logToFile sends logs to staffdir.log in the data dir instead of
	// stderr (the TUI owns the terminal).
	logToFile bool
	recorder  metrics.Recorder
}

func openApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var log *logger.Logger
	if opts.logToFile {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, sysErrorf("create data directory: %w", err)
		}
		log, err = logger.New(cfg.LogMode, filepath.Join(cfg.DataDir, "staffdir.log"))
	} else {
		log, err = logger.New(cfg.LogMode)
	}
	if err != nil {
		return nil, sysErrorf("logger: %w", err)
	}
	rec := opts.recorder
	if rec == nil {
		rec = metrics.Nop{}
	}

	a := &app{cfg: cfg, log: log}
	switch cfg.Backend {
	case types.BackendHTTP:
		c, err := restclient.New(log, cfg)
		if err != nil {
			return nil, err
		}
		a.client = c
	default:
		b, err := attachLocal(cfg, log)
		if err != nil {
			return nil, err
		}
		a.local = b
		a.client = b
	}

	a.ctrl = syncer.New(a.client, enrich.New(a.client, cfg.EnrichConcurrency, log, rec), log, rec)
	a.editor = editor.New(a.ctrl, log)
	a.resolver = resolver.New(a.client, log, rec)
	return a, nil
}

func attachLocal(cfg types.Config, log *logger.Logger) (*sqlite.Backend, error) {
	cfg.Backend = types.BackendSQLite
	b := sqlite.NewBackend(log)
	if err := b.Attach(cfg); err != nil {
		return nil, sysErrorf("attach local store in %s: %w", cfg.DataDir, err)
	}
	return b, nil
}

func (a *app) close() {
	if a.local != nil {
		if err := a.local.Detach(); err != nil {
			a.log.Warn("detach failed", "error", err)
		}
	}
	a.log.Sync()
}

// requireLocal returns the local store or an error naming the command.
func (a *app) requireLocal(command string) (*sqlite.Backend, error) {
	if a.local == nil {
		return nil, fmt.Errorf("%s needs the sqlite backend (configured: %s)", command, a.cfg.Backend)
	}
	return a.local, nil
}
