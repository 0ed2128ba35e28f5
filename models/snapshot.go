package models

// BlockDescriptor references one content-addressed sample block of a
// snapshot. Hash is the dedup key; it is matched case-insensitively and
// stored upper-cased everywhere in the local database.
type BlockDescriptor struct {
	Hash string `json:"hash"`
	URL  string `json:"url"`
}

// SnapshotInfo describes a single synchronization point of a project: where
// to fetch the project blob and which sample blocks the snapshot consists
// of. The value is immutable for the lifetime of a sync session.
type SnapshotInfo struct {
	ID      string            `json:"id"`
	FileURL string            `json:"file_url"`
	Blocks  []BlockDescriptor `json:"blocks"`
}
