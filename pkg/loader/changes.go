package loader

import (
	"sync"
	"time"
)

// PendingChange is a locally applied, not-yet-persisted edit to one field of
// one entity. It is kept as an overlay rather than a mutation of server data
// so provenance stays auditable: the server value lives in the entity list,
// the user value here.
type PendingChange struct {
	EntityID  string    `json:"entity_id"`
	Field     string    `json:"field"`
	OldValue  any       `json:"old_value"`
	NewValue  any       `json:"new_value"`
	Timestamp time.Time `json:"timestamp"`
}

type changeKey struct {
	entityID string
	field    string
}

// changeSet tracks pending changes keyed by (entity id, field). A later edit
// to the same field replaces the value but keeps the original OldValue, so
// the tracked delta is always against the last server-confirmed state.
type changeSet struct {
	mu      sync.Mutex
	changes map[changeKey]PendingChange
	order   []changeKey
}

func newChangeSet() *changeSet {
	return &changeSet{
		changes: make(map[changeKey]PendingChange),
	}
}

// Record stores or updates a pending change.
func (cs *changeSet) Record(entityID, field string, oldValue, newValue any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	key := changeKey{entityID: entityID, field: field}
	if prev, ok := cs.changes[key]; ok {
		prev.NewValue = newValue
		prev.Timestamp = time.Now()
		cs.changes[key] = prev
		return
	}

	cs.changes[key] = PendingChange{
		EntityID:  entityID,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		Timestamp: time.Now(),
	}
	cs.order = append(cs.order, key)
}

// All returns every pending change in recording order.
func (cs *changeSet) All() []PendingChange {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := make([]PendingChange, 0, len(cs.order))
	for _, key := range cs.order {
		out = append(out, cs.changes[key])
	}
	return out
}

// ByEntity returns pending changes grouped by entity id.
func (cs *changeSet) ByEntity() map[string][]PendingChange {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := make(map[string][]PendingChange)
	for _, key := range cs.order {
		c := cs.changes[key]
		out[c.EntityID] = append(out[c.EntityID], c)
	}
	return out
}

// Len returns the number of tracked changes.
func (cs *changeSet) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.changes)
}

// Clear removes all tracked changes.
func (cs *changeSet) Clear() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.changes = make(map[changeKey]PendingChange)
	cs.order = nil
}
