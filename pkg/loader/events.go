package loader

import (
	"github.com/sddhantjaiii/hrms-batch-client/pkg/api"
)

// EventKind identifies the notification emitted by the loader.
type EventKind string

const (
	// EventInitialLoaded fires when the initial batch has been stored.
	EventInitialLoaded EventKind = "initial_loaded"

	// EventProgress fires for non-fatal mid-load conditions, e.g. a failed
	// remaining-phase fetch whose initial data stays visible.
	EventProgress EventKind = "progress"

	// EventAllLoaded fires when the remaining batch has been merged and the
	// dataset is complete.
	EventAllLoaded EventKind = "all_loaded"

	// EventFailed fires when the initial phase fails and the load aborts.
	EventFailed EventKind = "failed"
)

// Event is one loader notification. Entities is a snapshot owned by the
// subscriber; mutating it does not affect loader state.
type Event struct {
	Kind           EventKind
	Key            string
	Entities       []api.Entity
	TotalItems     int
	RemainingItems int
	Complete       bool
	Err            error
}

// State is the loader's lifecycle phase.
type State string

const (
	StateIdle             State = "idle"
	StateLoadingInitial   State = "loading-initial"
	StateLoadingRemaining State = "loading-remaining"

	// StatePartial means the initial batch is visible and more data exists
	// (either not yet fetched, or the remaining fetch failed).
	StatePartial State = "partial"

	StateComplete State = "complete"
	StateError    State = "error"
)
