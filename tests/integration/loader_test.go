package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sddhantjaiii/hrms-batch-client/internal/testutil"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/api"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/cache"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/loader"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/ratelimit"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// newClient wires a rate-limited API client against the mock backend.
func newClient(t *testing.T, mock *testutil.MockHRMS, redisClient *redis.Client) *api.Client {
	t.Helper()

	cfg := api.DefaultConfig(mock.URL(), "integration-token")
	cfg.TenantID = "acme"
	cfg.RateLimiter = ratelimit.NewTracker(redisClient, zerolog.Nop())

	c, err := api.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// eventRecorder collects loader events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []loader.Event
	done   chan struct{}
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{done: make(chan struct{})}
}

func (r *eventRecorder) record(ev loader.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if ev.Kind == loader.EventAllLoaded || ev.Kind == loader.EventFailed {
		close(r.done)
	}
}

func (r *eventRecorder) waitDone(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(timeout):
		t.Fatal("Timed out waiting for the load to finish")
	}
}

func (r *eventRecorder) kinds() []loader.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]loader.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

// TestProgressiveLoadFlow runs the full two-phase flow against a live Redis:
// rate limit gate, initial batch, auto-scheduled remaining batch, and the
// gateway headers landing in shared Redis state.
func TestProgressiveLoadFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockHRMS()
	defer mock.Close()

	mock.SetDataset("2025-01-15", testutil.Dataset{
		Initial:            testutil.Employees(1, 50),
		Remaining:          testutil.Employees(51, 953),
		RecommendedDelayMS: 10,
	})
	mock.SetHeader("X-RateLimit-Remaining", "87")

	c := newClient(t, mock, redisClient)

	ldr := loader.New(c, loader.DefaultConfig())
	rec := newEventRecorder()
	ldr.Subscribe(rec.record)

	if err := ldr.LoadForKey(context.Background(), "2025-01-15"); err != nil {
		t.Fatalf("LoadForKey failed: %v", err)
	}

	// Initial batch is visible immediately, before the remaining phase lands.
	if got := len(ldr.Entities()); got != 50 {
		t.Errorf("Entities after initial = %d, want 50", got)
	}
	if ldr.TotalItems() != 1003 {
		t.Errorf("TotalItems = %d, want 1003", ldr.TotalItems())
	}

	rec.waitDone(t, 10*time.Second)

	if got := len(ldr.Entities()); got != 1003 {
		t.Errorf("Entities after remaining = %d, want 1003", got)
	}
	if ldr.State() != loader.StateComplete {
		t.Errorf("State = %s, want %s", ldr.State(), loader.StateComplete)
	}

	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[0] != loader.EventInitialLoaded || kinds[1] != loader.EventAllLoaded {
		t.Errorf("Event sequence = %v, want [initial-loaded all-loaded]", kinds)
	}

	total, initial, remaining := mock.Counts()
	if total != 2 || initial != 1 || remaining != 1 {
		t.Errorf("Request counts = (%d, %d, %d), want (2, 1, 1)", total, initial, remaining)
	}

	// The gateway headers from the responses should be visible in Redis.
	tracker := ratelimit.NewTracker(redisClient, zerolog.Nop())
	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.RequestsRemaining != 87 {
		t.Errorf("RequestsRemaining = %d, want 87", state.RequestsRemaining)
	}
}

// TestPendingChangeSurvivesMerge tracks a local edit after the initial batch
// and verifies the remaining-phase merge does not revert it.
func TestPendingChangeSurvivesMerge(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockHRMS()
	defer mock.Close()

	mock.SetDataset("2025-01-15", testutil.Dataset{
		Initial:            testutil.Employees(1, 5),
		Remaining:          testutil.Employees(6, 5),
		RecommendedDelayMS: 50,
	})

	c := newClient(t, mock, redisClient)

	ldr := loader.New(c, loader.DefaultConfig())
	rec := newEventRecorder()
	ldr.Subscribe(rec.record)

	if err := ldr.LoadForKey(context.Background(), "2025-01-15"); err != nil {
		t.Fatalf("LoadForKey failed: %v", err)
	}

	// Edit while the remaining fetch is still pending.
	ldr.TrackChange("E3", "status", "present", "absent")

	rec.waitDone(t, 10*time.Second)

	for _, e := range ldr.Entities() {
		if e.ID() == "E3" {
			if e["status"] != "absent" {
				t.Errorf("E3 status = %v, want absent (local edit reverted by merge)", e["status"])
			}
			return
		}
	}
	t.Error("E3 not found in merged list")
}

// TestSnapshotCacheRoundtrip stores a loaded dataset in the Redis snapshot
// cache and reads it back.
func TestSnapshotCacheRoundtrip(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockHRMS()
	defer mock.Close()

	mock.SetDataset("2025-01-15", testutil.Dataset{
		Initial: testutil.Employees(1, 25),
	})

	c := newClient(t, mock, redisClient)

	ldr := loader.New(c, loader.DefaultConfig())
	if err := ldr.LoadForKey(context.Background(), "2025-01-15"); err != nil {
		t.Fatalf("LoadForKey failed: %v", err)
	}
	if ldr.State() != loader.StateComplete {
		t.Fatalf("State = %s, want %s", ldr.State(), loader.StateComplete)
	}

	ctx := context.Background()
	manager := cache.NewManager(redisClient)
	key := cache.SnapshotKey{Date: "2025-01-15", Tenant: "acme"}

	snap := cache.NewSnapshot(ldr.Entities(), ldr.TotalItems(), 10*time.Minute)
	if err := manager.Set(ctx, key, snap); err != nil {
		t.Fatalf("Cache set failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Cache get failed: %v", err)
	}
	if len(got.Items) != 25 {
		t.Errorf("Cached items = %d, want 25", len(got.Items))
	}
	if got.TotalItems != 25 {
		t.Errorf("Cached total = %d, want 25", got.TotalItems)
	}
	if got.Items[0].ID() != "E1" {
		t.Errorf("First cached entity = %s, want E1", got.Items[0].ID())
	}

	// Serving the cached snapshot needs no backend request.
	total, _, _ := mock.Counts()
	if total != 1 {
		t.Errorf("Backend requests = %d, want 1", total)
	}
}

// TestRateLimitBlocksRequest verifies a critical gateway budget blocks the
// fetch before it reaches the backend.
func TestRateLimitBlocksRequest(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockHRMS()
	defer mock.Close()

	mock.SetDataset("2025-01-15", testutil.Dataset{
		Initial: testutil.Employees(1, 5),
	})

	// Seed a critical budget through the same path production uses.
	tracker := ratelimit.NewTracker(redisClient, zerolog.Nop())
	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "2")
	headers.Set("X-RateLimit-Reset", "60")
	if err := tracker.UpdateFromHeaders(context.Background(), headers); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	c := newClient(t, mock, redisClient)

	_, err := c.FetchBatch(context.Background(), "2025-01-15", api.PhaseInitial)
	if err == nil {
		t.Fatal("Expected the fetch to be blocked by the rate limiter")
	}

	total, _, _ := mock.Counts()
	if total != 0 {
		t.Errorf("Backend requests = %d, want 0 (blocked)", total)
	}
}
