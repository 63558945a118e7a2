// Package cache provides Redis-backed caching of fully merged attendance
// snapshots.
//
// A snapshot is the complete, two-phase-loaded entity list for one date (and
// tenant). Serving a repeated load of the same date from cache skips both
// network phases entirely. Expiry is client policy - the backend does not
// emit cache headers for this endpoint - so callers stamp each snapshot with
// an Expires time when storing it.
//
// Example usage:
//
//	mgr := cache.NewManager(redisClient)
//	key := cache.SnapshotKey{Date: "2024-01-15", Tenant: "acme"}
//
//	snap, err := mgr.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// run a progressive load, then:
//		mgr.Set(ctx, key, cache.NewSnapshot(entities, total, 10*time.Minute))
//	}
package cache
