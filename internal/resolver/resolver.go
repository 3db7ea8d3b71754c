// Package resolver turns free text into person suggestions for the editor's
// people picker. Every keystroke may start a search; only the most recently
// started search is allowed to replace the visible suggestions.
package resolver

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/internal/metrics"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// Searcher is the subset of types.DirectoryClient the resolver needs.
type Searcher interface {
	SearchPeople(ctx context.Context, text string) []types.Person
}

// Suggestions is the visible suggestion list and the text it matches.
type Suggestions struct {
	Seq    uint64
	Text   string
	People []types.Person
}

// Resolver filters people by display name and tracks the visible
// suggestions.
type Resolver struct {
	client Searcher
	log    *logger.Logger
	rec    metrics.Recorder

	seq atomic.Uint64

	mu      sync.Mutex
	visible Suggestions
}

// New returns a Resolver over client. log and rec may be nil.
func New(client Searcher, log *logger.Logger, rec metrics.Recorder) *Resolver {
	if log == nil {
		log = logger.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Resolver{
		client:  client,
		log:     log.With("component", "resolver"),
		rec:     rec,
		visible: Suggestions{People: []types.Person{}},
	}
}

// Resolve returns the people whose display name contains text, ignoring
// case. The filter is applied to whatever the store returns, so it holds
// even when the store filters differently. Empty text matches everyone.
func (r *Resolver) Resolve(ctx context.Context, text string) []types.Person {
	start := time.Now()
	candidates := r.client.SearchPeople(ctx, text)
	// SearchPeople absorbs failures, so only latency is known.
	metrics.Elapsed(ctx, r.rec, metrics.OpPeopleSearch, start)

	needle := strings.ToLower(text)
	matches := make([]types.Person, 0, len(candidates))
	for _, p := range candidates {
		if strings.Contains(strings.ToLower(p.DisplayName), needle) {
			matches = append(matches, p)
		}
	}
	return matches
}

// Begin issues the next sequence number. Numbers increase monotonically.
func (r *Resolver) Begin() uint64 {
	return r.seq.Add(1)
}

// Suggest resolves text and publishes the result as the visible
// suggestions, unless a newer search has been started in the meantime.
// It reports whether the result was applied.
func (r *Resolver) Suggest(ctx context.Context, text string) bool {
	return r.SuggestAt(ctx, r.Begin(), text)
}

// SuggestAt is Suggest with a sequence number obtained from Begin.
func (r *Resolver) SuggestAt(ctx context.Context, seq uint64, text string) bool {
	people := r.Resolve(ctx, text)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq.Load() || seq <= r.visible.Seq {
		r.log.Debug("dropping stale suggestions", "seq", seq, "text", text)
		return false
	}
	r.visible = Suggestions{Seq: seq, Text: text, People: people}
	return true
}

// Suggestions returns a copy of the visible suggestions.
func (r *Resolver) Suggestions() Suggestions {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.visible
	s.People = append([]types.Person(nil), r.visible.People...)
	if s.People == nil {
		s.People = []types.Person{}
	}
	return s
}
