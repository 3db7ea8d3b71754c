package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staffdir/internal/metrics"
	"github.com/mesh-intelligence/staffdir/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store over the list-store REST protocol",
		Long: "Run an HTTP list store backed by the local SQLite store. Point another\n" +
			"staffdir at it with backend: http and endpoint: http://ADDR/api.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.NewPrometheus(reg)
	if err != nil {
		return sysErrorf("metrics: %w", err)
	}

	a, err := openApp(appOptions{recorder: rec})
	if err != nil {
		return err
	}
	defer a.close()
	store, err := a.requireLocal("serve")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(store, a.log, server.Options{
		List:     a.cfg.List,
		PageSize: a.cfg.PageSize,
		Recorder: rec,
		Gatherer: reg,
	})
	if err := srv.Run(ctx, addr); err != nil {
		return sysErrorf("serve: %w", err)
	}
	return nil
}
