package models

// Progress is the state tuple delivered to the sync callback. A session
// emits it after every committed unit of work and exactly once as a terminal
// report (completed, failed or cancelled).
type Progress struct {
	// DownloadedBlocks is the number of blocks committed so far. Never
	// exceeds MissingBlocks.
	DownloadedBlocks uint
	// MissingBlocks is fixed when the session is constructed: the number of
	// required blocks not already present locally.
	MissingBlocks uint
	// Error is empty unless the session failed.
	Error string
	// ProjectDownloaded reports whether the project blob has been committed.
	ProjectDownloaded bool
	// Completed is true only on the single report emitted after every
	// required download has been committed.
	Completed bool
	// Success mirrors Completed.
	Success bool
	// Cancelled marks the terminal report of a cancelled session.
	Cancelled bool
}

// ProgressFunc receives progress reports from a sync session. It may be
// called from transport goroutines; implementations must be safe to invoke
// from any goroutine.
type ProgressFunc func(Progress)
