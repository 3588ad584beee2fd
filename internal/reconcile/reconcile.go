// Package reconcile keeps the displayed dataset consistent across browse
// mode, search mode, and filter edits. It owns the in-memory bulk cache and
// the stored search results; no other component mutates them.
package reconcile

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/innovatis-mc/emendas-cli/internal/filter"
	"github.com/innovatis-mc/emendas-cli/internal/model"
	"github.com/innovatis-mc/emendas-cli/internal/normalize"
	"github.com/innovatis-mc/emendas-cli/internal/stats"
)

// Debounce defaults, measured from the last term/filter change.
const (
	DefaultSearchDelay = 500 * time.Millisecond
	DefaultFilterDelay = 300 * time.Millisecond
)

// SearchQuery is the server-side search request: the term plus the filter
// dimensions the backend applies hierarchically before answering.
type SearchQuery struct {
	Term        string
	Years       []int
	RP          []string
	Modalidades []string
	UFs         []string
	Partidos    []string
}

// Source provides the two datasets the reconciler arbitrates between.
// Implementations return normalized opportunities.
type Source interface {
	Summary(ctx context.Context) (model.Summary, error)
	Opportunities(ctx context.Context) ([]model.Opportunity, error)
	Search(ctx context.Context, q SearchQuery) ([]model.Opportunity, error)
}

// Mode is the reconciler's externally visible state.
type Mode string

const (
	Browsing  Mode = "browsing"
	Searching Mode = "searching"
)

// searchState exists only while a search is active; a nil pointer is
// browse mode, so "no search but stored results" is unrepresentable.
type searchState struct {
	term     string
	original []model.Opportunity
}

// Snapshot is a read-only view of the current state.
type Snapshot struct {
	Mode       Mode
	SearchTerm string
	Data       []model.Opportunity
	Stats      stats.Stats
	Filters    model.FilterState
	Summary    model.Summary
	Err        error
}

// Reconciler is the stateful core. All mutation goes through its transition
// methods; Snapshot is the only read surface.
type Reconciler struct {
	src Source

	searchDelay time.Duration
	filterDelay time.Duration
	searchDeb   Debouncer
	filterDeb   Debouncer

	// gen guards against stale search responses: only the response whose
	// generation still matches is honored.
	gen atomic.Uint64
	sf  singleflight.Group

	mu      sync.Mutex
	summary model.Summary
	filters model.FilterState
	bulk    []model.Opportunity
	search  *searchState
	view    []model.Opportunity
	stats   stats.Stats
	lastErr error
	ready   bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDelays overrides the search and filter debounce windows. Zero runs
// transitions synchronously.
func WithDelays(search, filters time.Duration) Option {
	return func(r *Reconciler) {
		r.searchDelay = search
		r.filterDelay = filters
	}
}

// New creates a reconciler over the given source.
func New(src Source, opts ...Option) *Reconciler {
	r := &Reconciler{
		src:         src,
		searchDelay: DefaultSearchDelay,
		filterDelay: DefaultFilterDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init loads summary metadata, seeds the all-selected filter state, and
// fetches the bulk dataset. Must succeed before other transitions are
// meaningful; a failure leaves the reconciler retryable via Refresh.
func (r *Reconciler) Init(ctx context.Context) error {
	summary, err := r.src.Summary(ctx)
	if err != nil {
		r.setErr(eris.Wrap(err, "reconcile: load summary"))
		return r.Err()
	}

	r.mu.Lock()
	r.summary = summary
	r.filters = model.NewFilterState(summary)
	r.lastErr = nil
	r.ready = true
	r.mu.Unlock()

	return r.loadBulk(ctx)
}

// Refresh discards all cached data and search state, then reloads from
// scratch. Recovery path after a failed fetch.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.searchDeb.Cancel()
	r.gen.Add(1)

	r.mu.Lock()
	r.bulk = nil
	r.search = nil
	r.view = nil
	r.stats = stats.Stats{}
	r.lastErr = nil
	r.mu.Unlock()

	return r.Init(ctx)
}

// SetFilters applies a new selection after the filter debounce window.
// While a search is active this refilters the stored search results without
// touching the network; while browsing it reuses the cached bulk dataset,
// fetching only when the cache is empty.
func (r *Reconciler) SetFilters(ctx context.Context, f model.FilterState) {
	f = f.Clone()
	r.filterDeb.Do(r.filterDelay, func() {
		r.applyFilters(ctx, f)
	})
}

// SetOnlyRelated toggles the relationship filter. Enabling it narrows the
// ministry selection to related ministries before the generic pass, the
// same way the dashboard ties the two controls together.
func (r *Reconciler) SetOnlyRelated(ctx context.Context, on bool) {
	r.mu.Lock()
	f := r.filters.Clone()
	f.OnlyRelated = on
	if on {
		f.Ministries = r.summary.RelatedMinistryNames()
	}
	r.mu.Unlock()
	r.SetFilters(ctx, f)
}

func (r *Reconciler) applyFilters(ctx context.Context, f model.FilterState) {
	r.mu.Lock()
	r.filters = f
	searching := r.search != nil
	haveBulk := r.bulk != nil
	r.mu.Unlock()

	if searching {
		// Filter-only change during a search: reapply over the stored
		// original results, zero server calls.
		r.mu.Lock()
		r.recomputeLocked()
		r.mu.Unlock()
		return
	}

	if !haveBulk {
		if err := r.loadBulk(ctx); err != nil {
			return
		}
	}
	r.mu.Lock()
	r.recomputeLocked()
	r.mu.Unlock()
}

// Search schedules a server query for the term after the search debounce
// window, combined with the currently selected filter dimensions. An empty
// term clears search mode instead. Only the newest query's response is
// honored.
func (r *Reconciler) Search(ctx context.Context, term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		r.ClearSearch(ctx)
		return
	}

	gen := r.gen.Add(1)
	r.searchDeb.Do(r.searchDelay, func() {
		r.runSearch(ctx, gen, term)
	})
}

func (r *Reconciler) runSearch(ctx context.Context, gen uint64, term string) {
	r.mu.Lock()
	q := SearchQuery{
		Term:        term,
		Years:       r.filters.Years,
		RP:          r.filters.RP,
		Modalidades: r.filters.Modalidades,
		UFs:         r.filters.UFs,
		Partidos:    r.filters.Partidos,
	}
	summary := r.summary
	r.mu.Unlock()

	results, err := r.src.Search(ctx, q)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen.Load() {
		zap.L().Debug("dropping superseded search response", zap.String("term", term))
		return
	}
	if err != nil {
		r.lastErr = eris.Wrap(err, "reconcile: search")
		return
	}

	normalize.AttachRelationships(results, summary)
	r.search = &searchState{term: term, original: results}
	r.lastErr = nil
	r.recomputeLocked()
}

// ClearSearch leaves search mode: the pending query (if any) is cancelled,
// stored results are discarded, and the bulk dataset is reloaded with the
// current filters.
func (r *Reconciler) ClearSearch(ctx context.Context) {
	r.searchDeb.Cancel()
	r.gen.Add(1) // a late response for the old term must not repopulate state

	r.mu.Lock()
	r.search = nil
	haveBulk := r.bulk != nil
	r.mu.Unlock()

	if !haveBulk {
		if err := r.loadBulk(ctx); err != nil {
			return
		}
	}
	r.mu.Lock()
	r.recomputeLocked()
	r.mu.Unlock()
}

// loadBulk fetches the full dataset, deduplicating concurrent callers.
func (r *Reconciler) loadBulk(ctx context.Context) error {
	v, err, _ := r.sf.Do("bulk", func() (any, error) {
		return r.src.Opportunities(ctx)
	})
	if err != nil {
		r.setErr(eris.Wrap(err, "reconcile: load opportunities"))
		return r.Err()
	}
	ds := v.([]model.Opportunity)

	r.mu.Lock()
	normalize.AttachRelationships(ds, r.summary)
	r.bulk = ds
	r.lastErr = nil
	r.recomputeLocked()
	r.mu.Unlock()
	return nil
}

// recomputeLocked rebuilds the displayed view and its statistics from
// whichever dataset is active. Caller holds r.mu.
func (r *Reconciler) recomputeLocked() {
	src := r.bulk
	if r.search != nil {
		src = r.search.original
	}
	r.view = filter.Apply(src, r.filters)
	r.stats = stats.Compute(r.view)
}

func (r *Reconciler) setErr(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

// Err returns the last fetch/search failure, if any.
func (r *Reconciler) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// View returns a snapshot of the current state. The data slice is shared;
// callers must not mutate it.
func (r *Reconciler) View() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Mode:    Browsing,
		Data:    r.view,
		Stats:   r.stats,
		Filters: r.filters.Clone(),
		Summary: r.summary,
		Err:     r.lastErr,
	}
	if r.search != nil {
		snap.Mode = Searching
		snap.SearchTerm = r.search.term
	}
	return snap
}
