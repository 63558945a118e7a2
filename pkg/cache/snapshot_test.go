package cache

import (
	"testing"
	"time"

	"github.com/sddhantjaiii/hrms-batch-client/pkg/api"
)

func TestNewSnapshot(t *testing.T) {
	items := []api.Entity{{"entity_id": "E1"}}
	snap := NewSnapshot(items, 1003, 10*time.Minute)

	if len(snap.Items) != 1 {
		t.Errorf("Items = %d, want 1", len(snap.Items))
	}
	if snap.TotalItems != 1003 {
		t.Errorf("TotalItems = %d, want 1003", snap.TotalItems)
	}
	if snap.IsExpired() {
		t.Error("fresh snapshot should not be expired")
	}

	ttl := snap.TTL()
	if ttl <= 9*time.Minute || ttl > 10*time.Minute {
		t.Errorf("TTL = %v, want ~10m", ttl)
	}
}

func TestSnapshot_Expiry(t *testing.T) {
	snap := &Snapshot{
		CachedAt: time.Now().Add(-time.Hour),
		Expires:  time.Now().Add(-time.Minute),
	}

	if !snap.IsExpired() {
		t.Error("snapshot past Expires should be expired")
	}
	if snap.TTL() != 0 {
		t.Errorf("TTL of an expired snapshot = %v, want 0", snap.TTL())
	}
}
