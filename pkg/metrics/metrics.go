// Package metrics documents the Prometheus metrics exposed by the HRMS batch
// client. All metrics are defined in their respective packages (api, loader,
// cache, ratelimit) via promauto to maintain modularity and avoid circular
// dependencies; this package holds the registry reference and a catalogue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/api):
//   - hrms_requests_total{phase, status} (Counter): Batch requests by load phase and HTTP status
//   - hrms_request_duration_seconds{phase} (Histogram): Request duration by load phase
//   - hrms_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/api):
//   - hrms_retries_total{error_class} (Counter): Retry attempts by error class
//   - hrms_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - hrms_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Loader Metrics (pkg/loader):
//   - hrms_loader_loads_total{phase, outcome} (Counter): Load phases by outcome
//   - hrms_loader_phase_duration_seconds{phase} (Histogram): Load phase duration
//   - hrms_loader_pending_changes (Gauge): Locally tracked edits awaiting persistence
//   - hrms_loader_stale_responses_total (Counter): Responses discarded after a key change
//
// Cache Metrics (pkg/cache):
//   - hrms_cache_hits_total{layer="redis"} (Counter): Snapshot cache hits by layer
//   - hrms_cache_misses_total (Counter): Snapshot cache misses
//   - hrms_cache_size_bytes{layer="redis"} (Gauge): Snapshot cache size in bytes
//   - hrms_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - hrms_requests_remaining (Gauge): Requests remaining in the gateway window
//   - hrms_rate_limit_blocks_total (Counter): Requests blocked at critical budget
//   - hrms_rate_limit_throttles_total (Counter): Requests throttled at warning budget
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(hrms_cache_hits_total[5m])) /
//   (sum(rate(hrms_cache_hits_total[5m])) + sum(rate(hrms_cache_misses_total[5m])))
//
//   # Remaining-phase failure rate
//   rate(hrms_loader_loads_total{phase="remaining",outcome="error"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(hrms_request_duration_seconds_bucket[5m]))
//
//   # Gateway budget status
//   hrms_requests_remaining < 20
