package models

import "CatalogWatcher/internal/identity"

// Snapshot maps product identity to its last observed state.
type Snapshot map[identity.ID]SnapshotEntry

// Clone returns a shallow copy; entries are values so the copy is independent.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, e := range s {
		out[id] = e
	}
	return out
}

// ClassificationResult is the outcome of diffing one batch against a snapshot.
type ClassificationResult struct {
	New       []Product
	Restocked []Product
	Snapshot  Snapshot
}
