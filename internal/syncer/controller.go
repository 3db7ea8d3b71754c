// Package syncer owns the published ViewModel. It maps mutations onto the
// directory client and refreshes the view after each one.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mesh-intelligence/staffdir/internal/editor"
	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/internal/metrics"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// Enricher decorates listed records before they are published.
type Enricher interface {
	Enrich(ctx context.Context, records []types.Record) []types.Record
}

// RenderFunc receives every newly published ViewModel.
type RenderFunc func(types.ViewModel)

// Compile-time interface check.
var _ editor.Submitter = (*Controller)(nil)

// Controller refreshes and publishes the ViewModel and performs mutations.
// The ViewModel is replaced whole; readers always get a snapshot.
type Controller struct {
	client   types.DirectoryClient
	enricher Enricher
	log      *logger.Logger
	rec      metrics.Recorder

	vm atomic.Pointer[types.ViewModel]

	// publishMu orders version numbers and render callbacks.
	publishMu sync.Mutex
	renders   []RenderFunc
}

// New returns a Controller with an empty ViewModel at version 0. log and
// rec may be nil.
func New(client types.DirectoryClient, enricher Enricher, log *logger.Logger, rec metrics.Recorder) *Controller {
	if log == nil {
		log = logger.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	c := &Controller{
		client:   client,
		enricher: enricher,
		log:      log.With("component", "syncer"),
		rec:      rec,
	}
	c.vm.Store(&types.ViewModel{Records: []types.Record{}})
	return c
}

// ViewModel returns a snapshot of the published ViewModel.
func (c *Controller) ViewModel() types.ViewModel {
	return c.vm.Load().Clone()
}

// OnRender registers fn to be called after every publish. Callbacks run on
// the refreshing goroutine and must not call back into Refresh.
func (c *Controller) OnRender(fn RenderFunc) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	c.renders = append(c.renders, fn)
}

// Refresh lists every record, enriches them and publishes the result. On
// failure the previous ViewModel stays published and the error is logged
// and returned. When refreshes overlap, the last to finish wins.
func (c *Controller) Refresh(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.Since(ctx, c.rec, metrics.OpRefresh, start, err) }()

	records, err := c.client.ListAll(ctx)
	if err != nil {
		c.log.Warn("refresh failed, keeping previous view", "error", err)
		return fmt.Errorf("refresh: %w", err)
	}
	c.publish(c.enricher.Enrich(ctx, records))
	return nil
}

func (c *Controller) publish(records []types.Record) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	vm := types.ViewModel{
		Version: c.vm.Load().Version + 1,
		Records: records,
	}
	c.vm.Store(&vm)
	c.log.Debug("published view", "version", vm.Version, "records", len(records))
	for _, fn := range c.renders {
		fn(vm.Clone())
	}
}

// Create adds a record and refreshes on success. A refresh failure after a
// successful add is logged only.
func (c *Controller) Create(ctx context.Context, in types.NewRecord) (types.Record, error) {
	start := time.Now()
	rec, err := c.client.Add(ctx, in)
	metrics.Since(ctx, c.rec, metrics.OpCreate, start, err)
	if err != nil {
		return types.Record{}, err
	}
	c.log.Info("record created", "record_id", rec.ID)
	_ = c.Refresh(ctx)
	return rec, nil
}

// Update patches record id and refreshes on success.
func (c *Controller) Update(ctx context.Context, id int64, patch types.Patch) error {
	start := time.Now()
	err := c.client.Update(ctx, id, patch)
	metrics.Since(ctx, c.rec, metrics.OpUpdate, start, err)
	if err != nil {
		return err
	}
	c.log.Info("record updated", "record_id", id)
	_ = c.Refresh(ctx)
	return nil
}

// Remove deletes record id and then refreshes exactly once, whatever the
// delete outcome. A delete failure is logged and returned; it never reaches
// the editor.
func (c *Controller) Remove(ctx context.Context, id int64) error {
	start := time.Now()
	err := c.client.Delete(ctx, id)
	metrics.Since(ctx, c.rec, metrics.OpRemove, start, err)
	if err != nil {
		c.log.Warn("delete failed", "record_id", id, "error", err)
		err = fmt.Errorf("remove %d: %w", id, err)
	} else {
		c.log.Info("record deleted", "record_id", id)
	}
	_ = c.Refresh(ctx)
	return err
}
