package loader

import (
	"github.com/sddhantjaiii/hrms-batch-client/pkg/api"
)

// mergeEntities combines a newly fetched batch with the existing list.
//
// The merge is append-only and idempotent with respect to identity: existing
// entities keep their positions, incoming entities whose id is already
// present are dropped, and the rest are appended in server order. Every
// pending change is then re-applied to the result - not just to newly
// appended rows - so a repeated or reordered server batch can never silently
// revert a local edit.
//
// Entities in the result are copies; neither input slice is mutated.
func mergeEntities(existing, incoming []api.Entity, changes []PendingChange) []api.Entity {
	index := make(map[string]int, len(existing)+len(incoming))
	merged := make([]api.Entity, 0, len(existing)+len(incoming))

	for _, e := range existing {
		cp := e.Clone()
		index[cp.ID()] = len(merged)
		merged = append(merged, cp)
	}

	for _, e := range incoming {
		id := e.ID()
		if _, ok := index[id]; ok {
			continue
		}
		cp := e.Clone()
		index[id] = len(merged)
		merged = append(merged, cp)
	}

	for _, c := range changes {
		if i, ok := index[c.EntityID]; ok {
			merged[i][c.Field] = c.NewValue
		}
	}

	return merged
}

// cloneEntities returns a snapshot copy of a list.
func cloneEntities(entities []api.Entity) []api.Entity {
	out := make([]api.Entity, len(entities))
	for i, e := range entities {
		out[i] = e.Clone()
	}
	return out
}
