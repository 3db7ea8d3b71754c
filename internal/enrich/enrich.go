// Package enrich attaches person display names to records. Lookups for one
// batch run concurrently; a failed lookup only leaves its record without a
// display name.
package enrich

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/internal/metrics"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// Lookup is the subset of types.DirectoryClient the pipeline needs.
type Lookup interface {
	GetPerson(ctx context.Context, key string) (types.Person, error)
}

// Pipeline resolves PersonRef to PersonDisplayName for a batch of records.
type Pipeline struct {
	client      Lookup
	log         *logger.Logger
	rec         metrics.Recorder
	concurrency int
}

// New returns a Pipeline. A concurrency of zero or less uses
// types.DefaultEnrichConcurrency. log and rec may be nil.
func New(client Lookup, concurrency int, log *logger.Logger, rec metrics.Recorder) *Pipeline {
	if concurrency <= 0 {
		concurrency = types.DefaultEnrichConcurrency
	}
	if log == nil {
		log = logger.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Pipeline{
		client:      client,
		log:         log.With("component", "enrich"),
		rec:         rec,
		concurrency: concurrency,
	}
}

// Enrich returns a copy of records with PersonDisplayName filled in for
// every record whose reference resolves. The result has the same length
// and order as the input, and the input is not modified. Each referenced
// record gets exactly one lookup. Once ctx is done no new lookups start.
func (p *Pipeline) Enrich(ctx context.Context, records []types.Record) []types.Record {
	out := make([]types.Record, len(records))
	for i, rec := range records {
		rec.PersonDisplayName = ""
		out[i] = rec
	}

	// Lookups never return an error to the group, so one failure cannot
	// cancel the rest of the batch.
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range out {
		if !out[i].HasPerson() {
			continue
		}
		if ctx.Err() != nil {
			p.log.Debug("enrichment cancelled", "remaining", len(out)-i)
			break
		}
		g.Go(func() error {
			p.lookup(ctx, &out[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Pipeline) lookup(ctx context.Context, rec *types.Record) {
	start := time.Now()
	person, err := p.client.GetPerson(ctx, rec.PersonRef)
	p.rec.Observe(ctx, metrics.OpPersonLookup, err == nil, time.Since(start))
	if err != nil {
		p.log.Warn("person lookup failed", "record_id", rec.ID, "person_ref", rec.PersonRef, "error", err)
		return
	}
	rec.PersonDisplayName = person.DisplayName
}
