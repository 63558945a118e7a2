package cache

import (
	"strings"
)

// SnapshotKey identifies a cached snapshot: one date, optionally scoped to
// a tenant for multi-tenant deployments.
type SnapshotKey struct {
	// Date is the query key, an ISO date string (e.g. "2024-01-15").
	Date string

	// Tenant scopes the snapshot in multi-tenant deployments. Empty for
	// single-tenant installations.
	Tenant string
}

// String generates a deterministic cache key string.
// Format: hrms:snapshot:<date>[:tenant=<tenant>]
func (k SnapshotKey) String() string {
	parts := []string{"hrms", "snapshot", k.Date}
	if k.Tenant != "" {
		parts = append(parts, "tenant="+k.Tenant)
	}
	return strings.Join(parts, ":")
}
