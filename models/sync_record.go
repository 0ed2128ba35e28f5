package models

// SyncStatus is the persisted state of a project's local copy.
type SyncStatus int64

const (
	// SyncStatusDownloading marks a sync that has started but not finished.
	// A crash leaves the record in this state, which forces a re-check of
	// local blocks on the next sync.
	SyncStatusDownloading SyncStatus = iota
	// SyncStatusSynced marks a fully downloaded snapshot.
	SyncStatusSynced
)

// SyncRecord is the per-project row in the main database tracking which
// snapshot the local copy corresponds to. It outlives any single session.
type SyncRecord struct {
	ProjectID  string
	SnapshotID string
	Status     SyncStatus
	LastRead   int64
	LocalPath  string
}
