package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sddhantjaiii/hrms-batch-client/pkg/api"
)

// ErrEmptyKey is returned when a load is invoked without a query key.
var ErrEmptyKey = errors.New("query key is empty")

// Prometheus metrics for loader operations.
var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrms_loader_loads_total",
		Help: "Total load phases executed by phase and outcome",
	}, []string{"phase", "outcome"})

	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hrms_loader_phase_duration_seconds",
		Help:    "Load phase duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"phase"})

	pendingChangesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hrms_loader_pending_changes",
		Help: "Number of locally tracked field edits awaiting persistence",
	})

	staleResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrms_loader_stale_responses_total",
		Help: "Responses discarded because the query key changed while in flight",
	})
)

// Fetcher is the interface the batch endpoint client must implement.
type Fetcher interface {
	FetchBatch(ctx context.Context, date string, phase api.Phase) (*api.BatchResponse, error)
}

// Config holds loader configuration.
type Config struct {
	// AutoFetchRemaining schedules the remaining-phase fetch automatically
	// when the server reports more data.
	AutoFetchRemaining bool

	// DefaultDelay is used when the server omits recommended_delay_ms.
	DefaultDelay time.Duration
}

// DefaultConfig returns safe default loader configuration.
func DefaultConfig() Config {
	return Config{
		AutoFetchRemaining: true,
		DefaultDelay:       500 * time.Millisecond,
	}
}

// Loader orchestrates a two-phase fetch for one query key at a time and
// presents a consistent, ever-growing view of the result set. A Loader is
// safe for concurrent use.
type Loader struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
	changes *changeSet

	mu                sync.Mutex
	key               string
	generation        uint64
	state             State
	entities          []api.Entity
	totalItems        int
	remainingItems    int
	remainingInFlight bool
	cancelScheduled   context.CancelFunc
	subscribers       []func(Event)
}

// New creates a new Loader.
func New(fetcher Fetcher, cfg Config) *Loader {
	if cfg.DefaultDelay <= 0 {
		cfg.DefaultDelay = 500 * time.Millisecond
	}

	return &Loader{
		fetcher: fetcher,
		config:  cfg,
		logger:  log.With().Str("component", "loader").Logger(),
		changes: newChangeSet(),
		state:   StateIdle,
	}
}

// Subscribe registers a callback for loader events. Callbacks run on the
// goroutine that produced the event and must not block.
func (l *Loader) Subscribe(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, fn)
}

// LoadForKey issues the initial-phase request for a query key (an ISO date).
// A new key supersedes any load in progress: scheduled or in-flight
// remaining-phase work for the old key is cancelled and its response, should
// it still arrive, is discarded.
//
// On success the initial batch becomes the current list and an
// InitialLoaded event fires; if the server reports more data and
// AutoFetchRemaining is set, the remaining phase is scheduled after the
// server-recommended delay. On failure the loader enters StateError with an
// empty list and the error is returned.
func (l *Loader) LoadForKey(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	l.mu.Lock()
	l.generation++
	gen := l.generation
	if l.cancelScheduled != nil {
		l.cancelScheduled()
		l.cancelScheduled = nil
	}
	l.key = key
	l.state = StateLoadingInitial
	l.entities = nil
	l.totalItems = 0
	l.remainingItems = 0
	l.remainingInFlight = false
	l.mu.Unlock()

	start := time.Now()
	resp, err := l.fetcher.FetchBatch(ctx, key, api.PhaseInitial)
	loadDuration.WithLabelValues("initial").Observe(time.Since(start).Seconds())

	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		staleResponsesTotal.Inc()
		l.logger.Debug().Str("key", key).Msg("Discarding superseded initial response")
		return nil
	}

	if err != nil {
		l.state = StateError
		l.entities = nil
		l.mu.Unlock()
		loadsTotal.WithLabelValues("initial", "error").Inc()
		l.logger.Error().Err(err).Str("key", key).Msg("Initial load failed")
		l.publish(Event{Kind: EventFailed, Key: key, Err: err})
		return fmt.Errorf("initial load for %s: %w", key, err)
	}

	merged := mergeEntities(nil, resp.Items, l.changes.All())
	l.entities = merged
	l.totalItems = resp.Progressive.TotalItems
	l.remainingItems = resp.Progressive.RemainingItems

	complete := !resp.Progressive.HasMore
	if complete {
		l.state = StateComplete
	} else {
		l.state = StatePartial
	}

	snapshot := cloneEntities(merged)
	totalItems := l.totalItems
	remainingItems := l.remainingItems

	var schedCtx context.Context
	autoFetch := l.config.AutoFetchRemaining && resp.Progressive.HasMore
	if autoFetch {
		// Detached from the caller's context so the background fetch
		// survives the call returning; cancelled on the next key change.
		schedCtx, l.cancelScheduled = context.WithCancel(context.WithoutCancel(ctx))
	}
	l.mu.Unlock()

	loadsTotal.WithLabelValues("initial", "success").Inc()
	l.logger.Info().
		Str("key", key).
		Int("items", len(snapshot)).
		Int("total_items", totalItems).
		Int("remaining_items", remainingItems).
		Bool("complete", complete).
		Msg("Initial batch loaded")

	l.publish(Event{
		Kind:           EventInitialLoaded,
		Key:            key,
		Entities:       snapshot,
		TotalItems:     totalItems,
		RemainingItems: remainingItems,
		Complete:       complete,
	})

	if autoFetch {
		delay := l.config.DefaultDelay
		if ms := resp.Progressive.RecommendedDelayMS; ms > 0 {
			delay = time.Duration(ms) * time.Millisecond
		}
		go l.scheduleRemaining(schedCtx, gen, key, delay)
	}

	return nil
}

// scheduleRemaining waits out the recommended delay, then triggers the
// remaining-phase fetch unless the key changed in the meantime.
func (l *Loader) scheduleRemaining(ctx context.Context, gen uint64, key string, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		l.logger.Debug().Str("key", key).Msg("Scheduled remaining fetch cancelled")
		return
	case <-timer.C:
	}

	if err := l.fetchRemaining(ctx, gen, key); err != nil {
		// Already surfaced via a Progress event; nothing to return to here.
		l.logger.Debug().Err(err).Str("key", key).Msg("Auto-triggered remaining fetch failed")
	}
}

// FetchRemaining issues the remaining-phase request for the current key.
// It is a no-op while another remaining-phase fetch is in flight or when the
// dataset is already complete. On failure the already-shown list stays
// visible and the error is surfaced via a Progress event; the caller may
// retry by calling FetchRemaining again.
func (l *Loader) FetchRemaining(ctx context.Context) error {
	l.mu.Lock()
	gen := l.generation
	key := l.key
	l.mu.Unlock()

	if key == "" {
		return ErrEmptyKey
	}
	return l.fetchRemaining(ctx, gen, key)
}

func (l *Loader) fetchRemaining(ctx context.Context, gen uint64, key string) error {
	l.mu.Lock()
	// Only a successfully loaded partial dataset has a remainder to fetch;
	// anything else (in-flight fetch, complete, error, still loading the
	// initial batch) makes this a no-op.
	if gen != l.generation || l.remainingInFlight || l.state != StatePartial {
		l.mu.Unlock()
		return nil
	}
	l.remainingInFlight = true
	l.state = StateLoadingRemaining
	l.mu.Unlock()

	start := time.Now()
	resp, err := l.fetcher.FetchBatch(ctx, key, api.PhaseRemaining)
	loadDuration.WithLabelValues("remaining").Observe(time.Since(start).Seconds())

	l.mu.Lock()
	if gen != l.generation {
		// Key changed while the request was in flight; LoadForKey already
		// reset in-flight tracking for the new generation.
		l.mu.Unlock()
		staleResponsesTotal.Inc()
		l.logger.Debug().Str("key", key).Msg("Discarding superseded remaining response")
		return nil
	}
	l.remainingInFlight = false

	if err != nil {
		l.state = StatePartial
		snapshot := cloneEntities(l.entities)
		totalItems := l.totalItems
		remainingItems := l.remainingItems
		l.mu.Unlock()

		loadsTotal.WithLabelValues("remaining", "error").Inc()
		l.logger.Warn().Err(err).Str("key", key).Msg("Remaining load failed - initial data stays visible")
		l.publish(Event{
			Kind:           EventProgress,
			Key:            key,
			Entities:       snapshot,
			TotalItems:     totalItems,
			RemainingItems: remainingItems,
			Complete:       false,
			Err:            err,
		})
		return fmt.Errorf("remaining load for %s: %w", key, err)
	}

	merged := mergeEntities(l.entities, resp.Items, l.changes.All())
	l.entities = merged
	if resp.Progressive.TotalItems > 0 {
		l.totalItems = resp.Progressive.TotalItems
	}
	l.remainingItems = 0
	l.state = StateComplete
	snapshot := cloneEntities(merged)
	totalItems := l.totalItems
	l.mu.Unlock()

	loadsTotal.WithLabelValues("remaining", "success").Inc()
	l.logger.Info().
		Str("key", key).
		Int("items", len(snapshot)).
		Int("total_items", totalItems).
		Msg("All batches loaded")

	l.publish(Event{
		Kind:       EventAllLoaded,
		Key:        key,
		Entities:   snapshot,
		TotalItems: totalItems,
		Complete:   true,
	})
	return nil
}

// TrackChange records a local edit to one field of one entity and applies it
// to the current list immediately if the entity is present. The change is
// re-applied on every subsequent merge, so server data arriving later can
// never revert it. Tracking an id that is not yet in the list is fine; the
// change takes effect at the first merge that introduces the entity.
func (l *Loader) TrackChange(entityID, field string, oldValue, newValue any) {
	l.changes.Record(entityID, field, oldValue, newValue)
	pendingChangesGauge.Set(float64(l.changes.Len()))

	l.mu.Lock()
	for _, e := range l.entities {
		if e.ID() == entityID {
			e[field] = newValue
			break
		}
	}
	l.mu.Unlock()

	l.logger.Debug().
		Str("entity_id", entityID).
		Str("field", field).
		Msg("Tracked local change")
}

// Entities returns a snapshot copy of the current list. The returned slice
// and its entities are owned by the caller.
func (l *Loader) Entities() []api.Entity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneEntities(l.entities)
}

// PendingChanges returns all tracked changes grouped by entity id, for
// diagnostics or persistence.
func (l *Loader) PendingChanges() map[string][]PendingChange {
	return l.changes.ByEntity()
}

// ClearPendingChanges drops all tracked changes, e.g. after they have been
// persisted to the backend.
func (l *Loader) ClearPendingChanges() {
	l.changes.Clear()
	pendingChangesGauge.Set(0)
}

// State returns the loader's current lifecycle phase.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Key returns the query key of the current load, if any.
func (l *Loader) Key() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.key
}

// TotalItems returns the server-reported total for the current key.
func (l *Loader) TotalItems() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalItems
}

// publish delivers an event to all subscribers.
func (l *Loader) publish(ev Event) {
	l.mu.Lock()
	subs := make([]func(Event), len(l.subscribers))
	copy(subs, l.subscribers)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
