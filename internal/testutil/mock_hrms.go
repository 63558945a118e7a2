// Package testutil provides testing utilities for the HRMS batch client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/sddhantjaiii/hrms-batch-client/pkg/api"
)

// Dataset is the attendance data the mock serves for one date, pre-split
// into the two load phases.
type Dataset struct {
	Initial   []api.Entity
	Remaining []api.Entity

	// RecommendedDelayMS is echoed in the initial batch metadata.
	RecommendedDelayMS int
}

// MockHRMS is a configurable mock HRMS backend for testing.
type MockHRMS struct {
	server *httptest.Server

	mu       sync.RWMutex
	datasets map[string]Dataset
	// failStatus, when non-zero for a phase, makes that phase answer with
	// the given status instead of data.
	failStatus map[api.Phase]int
	headers    map[string]string
	delay      time.Duration

	// Tracking
	RequestCount   int
	InitialCount   int
	RemainingCount int
	LastHeader     http.Header
}

// NewMockHRMS creates a new mock HRMS server.
func NewMockHRMS() *MockHRMS {
	mock := &MockHRMS{
		datasets:   make(map[string]Dataset),
		failStatus: make(map[api.Phase]int),
		headers: map[string]string{
			"Content-Type":          "application/json",
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
		},
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockHRMS) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockHRMS) Close() {
	m.server.Close()
}

// SetDataset registers the attendance data served for a date.
func (m *MockHRMS) SetDataset(date string, ds Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[date] = ds
}

// FailPhase makes the given load phase answer with an HTTP error status.
// Pass 0 to restore normal behavior.
func (m *MockHRMS) FailPhase(phase api.Phase, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == 0 {
		delete(m.failStatus, phase)
		return
	}
	m.failStatus[phase] = status
}

// SetHeader sets a response header emitted on every response.
func (m *MockHRMS) SetHeader(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[key] = value
}

// SetDelay makes every response sleep before answering.
func (m *MockHRMS) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Reset clears all tracking counters.
func (m *MockHRMS) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.InitialCount = 0
	m.RemainingCount = 0
	m.LastHeader = nil
}

// Counts returns the per-phase request counters.
func (m *MockHRMS) Counts() (total, initial, remaining int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount, m.InitialCount, m.RemainingCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockHRMS) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastHeader
}

func (m *MockHRMS) handle(w http.ResponseWriter, r *http.Request) {
	phase := phaseFromQuery(r)

	m.mu.Lock()
	m.RequestCount++
	switch phase {
	case api.PhaseRemaining:
		m.RemainingCount++
	default:
		// No phase flag defaults to initial-page behavior.
		m.InitialCount++
	}
	m.LastHeader = r.Header.Clone()

	ds := m.datasets[r.URL.Query().Get("date")]
	status := m.failStatus[phase]
	headers := make(map[string]string, len(m.headers))
	for k, v := range m.headers {
		headers[k] = v
	}
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	for k, v := range headers {
		w.Header().Set(k, v)
	}

	if status != 0 {
		w.WriteHeader(status)
		w.Write([]byte(`{"error": "` + strconv.Itoa(status) + `"}`))
		return
	}

	total := len(ds.Initial) + len(ds.Remaining)

	var resp api.BatchResponse
	switch phase {
	case api.PhaseRemaining:
		resp = api.BatchResponse{
			Items: ds.Remaining,
			Progressive: api.ProgressiveMeta{
				IsRemainingLoad: true,
				ItemsInBatch:    len(ds.Remaining),
				TotalItems:      total,
				RemainingItems:  0,
				HasMore:         false,
			},
			Performance: api.Performance{
				QueryTime: 0.05,
				LoadMode:  "remaining",
				BatchSize: len(ds.Remaining),
			},
		}
	default:
		meta := api.ProgressiveMeta{
			IsInitialLoad:      true,
			ItemsInBatch:       len(ds.Initial),
			TotalItems:         total,
			RemainingItems:     len(ds.Remaining),
			HasMore:            len(ds.Remaining) > 0,
			RecommendedDelayMS: ds.RecommendedDelayMS,
		}
		if meta.HasMore {
			meta.NextBatchDescriptor = "remaining=true"
		}
		resp = api.BatchResponse{
			Items:       ds.Initial,
			Progressive: meta,
			Performance: api.Performance{
				QueryTime: 0.01,
				LoadMode:  "initial",
				BatchSize: len(ds.Initial),
			},
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func phaseFromQuery(r *http.Request) api.Phase {
	q := r.URL.Query()
	switch {
	case q.Get("remaining") == "true":
		return api.PhaseRemaining
	case q.Get("initial") == "true":
		return api.PhaseInitial
	default:
		return api.PhaseUnspecified
	}
}

// Employees generates n sequential attendance entities starting at startID,
// e.g. Employees(1, 3) yields ids E1, E2, E3.
func Employees(startID, n int) []api.Entity {
	out := make([]api.Entity, 0, n)
	for i := 0; i < n; i++ {
		id := startID + i
		out = append(out, api.Entity{
			"entity_id": "E" + strconv.Itoa(id),
			"name":      "Employee " + strconv.Itoa(id),
			"status":    "present",
		})
	}
	return out
}
