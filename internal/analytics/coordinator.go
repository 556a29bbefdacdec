package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/solcial/pulse/internal/api"
	"github.com/solcial/pulse/internal/cache"
	"github.com/solcial/pulse/internal/constants"
)

// State is the coordinator's fetch lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// PreferenceSink persists view preferences across restarts. Persistence
// failures never fail the operation that triggered them.
type PreferenceSink interface {
	SaveFilters(f Filters) error
	SaveComparisonEnabled(enabled bool) error
}

// Options configures a Coordinator
type Options struct {
	CacheTTL        time.Duration
	CacheMaxEntries int
	ExportTick      time.Duration
	ExportDelay     time.Duration

	// InitialFilters and ComparisonEnabled seed the view state, normally
	// from the preference store. Nil InitialFilters means DefaultFilters.
	InitialFilters    *Filters
	ComparisonEnabled bool

	Prefs  PreferenceSink
	Logger zerolog.Logger
}

// Coordinator owns the analytics view-state: the result cache, the active
// filter set, the fetch lifecycle, and the export job. It is the single
// source of truth for that state; consumers read snapshots and trigger the
// exported operations, never mutating state directly.
type Coordinator struct {
	provider api.Provider
	exporter api.Exporter
	cache    *cache.Cache
	prefs    PreferenceSink
	log      zerolog.Logger

	cacheTTL    time.Duration
	exportTick  time.Duration
	exportDelay time.Duration

	mu                sync.Mutex
	subjectID         string
	filters           Filters
	comparisonEnabled bool
	state             State
	lastError         string
	result            *api.AnalyticsResult
	comparison        *api.AnalyticsResult

	// generation guards overlapping fetches: a completion whose generation
	// is no longer the latest issued one is discarded without touching state.
	generation uint64

	exporting      bool
	exportProgress int
	exportJobID    string
	exportError    string

	now func() time.Time
}

// NewCoordinator creates a coordinator backed by the given collaborators
func NewCoordinator(provider api.Provider, exporter api.Exporter, opts Options) *Coordinator {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = constants.DefaultCacheTTL
	}
	if opts.CacheMaxEntries <= 0 {
		opts.CacheMaxEntries = constants.DefaultCacheMaxEntries
	}
	if opts.ExportTick <= 0 {
		opts.ExportTick = constants.ExportTickInterval
	}
	if opts.ExportDelay <= 0 {
		opts.ExportDelay = constants.ExportDisplayDelay
	}

	c := &Coordinator{
		provider:          provider,
		exporter:          exporter,
		cache:             cache.New(opts.CacheMaxEntries, opts.CacheTTL),
		prefs:             opts.Prefs,
		log:               opts.Logger,
		cacheTTL:          opts.CacheTTL,
		exportTick:        opts.ExportTick,
		exportDelay:       opts.ExportDelay,
		comparisonEnabled: opts.ComparisonEnabled,
		state:             StateIdle,
		now:               time.Now,
	}

	if opts.InitialFilters != nil {
		c.filters = *opts.InitialFilters
	} else {
		c.filters = DefaultFilters(c.now())
	}

	return c
}

// Snapshot is a read-only view of the coordinator state
type Snapshot struct {
	SubjectID         string               `json:"subjectId"`
	State             State                `json:"state"`
	Error             string               `json:"error,omitempty"`
	Filters           Filters              `json:"filters"`
	ComparisonEnabled bool                 `json:"comparisonEnabled"`
	Result            *api.AnalyticsResult `json:"result,omitempty"`
	Comparison        *api.AnalyticsResult `json:"comparison,omitempty"`
	Exporting         bool                 `json:"exporting"`
	ExportProgress    int                  `json:"exportProgress"`
	ExportError       string               `json:"exportError,omitempty"`
}

// Snapshot returns the current view state
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		SubjectID:         c.subjectID,
		State:             c.state,
		Error:             c.lastError,
		Filters:           c.filters,
		ComparisonEnabled: c.comparisonEnabled,
		Result:            c.result,
		Comparison:        c.comparison,
		Exporting:         c.exporting,
		ExportProgress:    c.exportProgress,
		ExportError:       c.exportError,
	}
}

// FetchAnalytics loads analytics for subjectID with overrides merged onto the
// current filter set. On a cache hit no network call is made. The primary
// result and the filters that produced it are always committed in the same
// state transition, so displayed data and displayed filters never disagree.
//
// Overlapping calls are allowed; each takes a generation, and a completion
// whose generation has been superseded is discarded silently.
func (c *Coordinator) FetchAnalytics(ctx context.Context, subjectID string, overrides *FilterOverrides) error {
	c.mu.Lock()

	effective, err := c.filters.Merge(overrides, c.now())
	if err != nil {
		c.mu.Unlock()
		return err
	}

	key := CacheKey(subjectID, effective)
	if data, ok := c.cache.Get(key); ok {
		c.subjectID = subjectID
		c.filters = effective
		c.result = data.(*api.AnalyticsResult)
		c.state = StateSuccess
		c.lastError = ""
		c.mu.Unlock()

		c.log.Debug().Str("subject", subjectID).Str("key", key).Msg("analytics cache hit")
		c.persistFilters(effective)
		return nil
	}

	c.generation++
	gen := c.generation
	c.state = StateLoading
	c.lastError = ""
	withComparison := c.comparisonEnabled
	c.mu.Unlock()

	primary, err := c.provider.GetUserAnalytics(ctx, subjectID, effective.Query())
	if err != nil {
		c.mu.Lock()
		if gen == c.generation {
			c.state = StateError
			c.lastError = fmt.Sprintf("failed to load analytics: %v", err)
		}
		c.mu.Unlock()
		return fmt.Errorf("fetch analytics for %s: %w", subjectID, err)
	}

	// Comparison data is best-effort: its failure is logged, never surfaced.
	// The comparison fetch only starts after the primary fetch has resolved.
	var comparison *api.AnalyticsResult
	if withComparison {
		comparison = c.fetchComparison(ctx, subjectID, effective)
	}

	c.mu.Lock()
	// A successful response is valid for its key even if a newer fetch has
	// been issued meanwhile, so it is cached either way.
	c.cache.Set(key, primary, c.cacheTTL)

	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug().Str("subject", subjectID).Uint64("generation", gen).Msg("discarding superseded fetch result")
		return nil
	}

	c.subjectID = subjectID
	c.filters = effective
	c.result = primary
	c.comparison = comparison
	c.state = StateSuccess
	c.lastError = ""
	c.mu.Unlock()

	c.persistFilters(effective)
	return nil
}

// fetchComparison loads the window of identical duration immediately
// preceding the primary window. Returns nil on failure.
func (c *Coordinator) fetchComparison(ctx context.Context, subjectID string, f Filters) *api.AnalyticsResult {
	query := f.Query()
	query.StartMs, query.EndMs = f.ComparisonWindow()

	comparison, err := c.provider.GetUserAnalytics(ctx, subjectID, query)
	if err != nil {
		c.log.Warn().Err(err).Str("subject", subjectID).Msg("comparison fetch failed, continuing without comparison data")
		return nil
	}

	return comparison
}

// FetchMetric retrieves a single named metric for a subject, bypassing the
// result cache.
func (c *Coordinator) FetchMetric(ctx context.Context, subjectID, metric string) (*api.MetricResult, error) {
	result, err := c.provider.GetMetric(ctx, subjectID, metric)
	if err != nil {
		return nil, fmt.Errorf("fetch metric %s for %s: %w", metric, subjectID, err)
	}
	return result, nil
}

// ToggleComparison flips the comparison flag and returns the new value.
// Turning comparison on discards any previously held comparison result, which
// is stale for the new mode; it does not trigger a re-fetch.
func (c *Coordinator) ToggleComparison() bool {
	c.mu.Lock()
	c.comparisonEnabled = !c.comparisonEnabled
	enabled := c.comparisonEnabled
	if enabled {
		c.comparison = nil
	}
	c.mu.Unlock()

	if c.prefs != nil {
		if err := c.prefs.SaveComparisonEnabled(enabled); err != nil {
			c.log.Warn().Err(err).Msg("failed to persist comparison preference")
		}
	}

	return enabled
}

// ClearError clears the last fetch error without touching results
func (c *Coordinator) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastError = ""
	if c.state == StateError {
		c.state = StateIdle
	}
}

// InvalidateCache drops all cached analytics results
func (c *Coordinator) InvalidateCache() {
	c.cache.Clear()
}

func (c *Coordinator) persistFilters(f Filters) {
	if c.prefs == nil {
		return
	}
	if err := c.prefs.SaveFilters(f); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist filter preferences")
	}
}
