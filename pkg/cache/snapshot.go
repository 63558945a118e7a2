package cache

import (
	"time"

	"github.com/sddhantjaiii/hrms-batch-client/pkg/api"
)

// Snapshot is a fully merged attendance dataset for one date.
type Snapshot struct {
	// Items is the complete entity list after both load phases.
	Items []api.Entity `json:"items"`

	// TotalItems is the server-reported total at load time.
	TotalItems int `json:"total_items"`

	// CachedAt is when the snapshot was stored.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the snapshot becomes stale. Client policy, since the
	// batch endpoint carries no cache headers.
	Expires time.Time `json:"expires"`
}

// NewSnapshot builds a snapshot expiring ttl from now.
func NewSnapshot(items []api.Entity, totalItems int, ttl time.Duration) *Snapshot {
	now := time.Now()
	return &Snapshot{
		Items:      items,
		TotalItems: totalItems,
		CachedAt:   now,
		Expires:    now.Add(ttl),
	}
}

// IsExpired returns true if the snapshot has expired.
func (s *Snapshot) IsExpired() bool {
	return time.Now().After(s.Expires)
}

// TTL returns the time until expiration. Returns 0 if already expired.
func (s *Snapshot) TTL() time.Duration {
	ttl := time.Until(s.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
