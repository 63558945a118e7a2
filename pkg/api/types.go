package api

import (
	"fmt"
	"strconv"
)

// Phase selects which slice of the day's dataset a request asks for.
type Phase string

const (
	// PhaseUnspecified omits both flags; the server falls back to the
	// initial-page behavior for older callers.
	PhaseUnspecified Phase = ""

	// PhaseInitial requests the first batch of the dataset.
	PhaseInitial Phase = "initial"

	// PhaseRemaining requests everything beyond the first batch.
	PhaseRemaining Phase = "remaining"
)

// Entity is one record in a progressively loaded list (e.g. an employee's
// attendance row). Fields are dynamic; the record is identified by its
// entity_id field.
type Entity map[string]any

// ID returns the entity_id field as a string. The HRMS backend serializes
// ids as strings, but numeric ids from older API versions are handled too.
func (e Entity) ID() string {
	switch v := e["entity_id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// Clone returns a shallow copy of the entity. Field values are shared;
// the map itself is independent.
func (e Entity) Clone() Entity {
	cp := make(Entity, len(e))
	for k, v := range e {
		cp[k] = v
	}
	return cp
}

// ProgressiveMeta is the pagination metadata block attached to every batch
// response. The batch boundary is server policy; clients must drive all
// decisions from HasMore and RemainingItems rather than assuming a page size.
type ProgressiveMeta struct {
	IsInitialLoad       bool   `json:"is_initial_load"`
	IsRemainingLoad     bool   `json:"is_remaining_load"`
	ItemsInBatch        int    `json:"items_in_batch"`
	TotalItems          int    `json:"total_items"`
	RemainingItems      int    `json:"remaining_items"`
	HasMore             bool   `json:"has_more"`
	NextBatchDescriptor string `json:"next_batch_descriptor,omitempty"`
	RecommendedDelayMS  int    `json:"recommended_delay_ms,omitempty"`
}

// Performance carries server-side timing diagnostics for a batch.
type Performance struct {
	QueryTime float64 `json:"query_time"`
	LoadMode  string  `json:"load_mode"`
	BatchSize int     `json:"batch_size"`
}

// BatchResponse is the body of one batch endpoint response.
type BatchResponse struct {
	Items       []Entity        `json:"items"`
	Progressive ProgressiveMeta `json:"progressive_loading"`
	Performance Performance     `json:"performance"`
}
