// Package server exposes a local store over the list-store REST protocol
// so the http backend can be run against a sqlite-backed directory.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/internal/metrics"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// APIPrefix is the path every protocol route lives under. Clients use
// http://host:port/api as their endpoint.
const APIPrefix = "/api"

// maxPageSize bounds the top query parameter.
const maxPageSize = 5000

const shutdownTimeout = 5 * time.Second

// Store is what the server needs from a backend: the directory operations
// plus keyset paging.
type Store interface {
	types.DirectoryClient
	ListPage(ctx context.Context, after int64, limit int) ([]types.Record, bool, error)
}

// Options configures a Server.
type Options struct {
	// List is the only list name the server answers for.
	List string
	// PageSize is used when a request carries no top parameter.
	PageSize int
	// Recorder observes store operations; nil means metrics.Nop.
	Recorder metrics.Recorder
	// Gatherer backs /metrics; nil disables the route.
	Gatherer prometheus.Gatherer
}

// Server serves a Store over HTTP.
type Server struct {
	store  Store
	log    *logger.Logger
	opts   Options
	engine *gin.Engine
}

// New builds a Server and its routes.
func New(store Store, log *logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.List == "" {
		opts.List = types.DefaultList
	}
	if opts.PageSize <= 0 {
		opts.PageSize = types.DefaultPageSize
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.Nop{}
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		store:  store,
		log:    log.With("component", "server"),
		opts:   opts,
		engine: gin.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if s.opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group(APIPrefix)
	{
		items := api.Group("/lists/:list/items", s.requireList)
		items.GET("", s.listItems)
		items.POST("", s.createItem)
		items.PATCH("/:id", s.updateItem)
		items.DELETE("/:id", s.deleteItem)

		api.GET("/people", s.searchPeople)
		api.GET("/people/:key", s.getPerson)
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not_found", "no such route")
	})
}

// Handler returns the http.Handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr, "list", s.opts.List)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}
