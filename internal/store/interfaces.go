package store

import (
	"context"

	"github.com/soundpool/snapsync/models"
)

// SessionStore is the storage surface a sync session needs: dedup lookup,
// the two transactional commit shapes and the sync-record lifecycle.
type SessionStore interface {
	// KnownBlocks returns the subset of hashes that are indexed for the
	// project and backed by a payload row in the attached snapshot storage.
	KnownBlocks(ctx context.Context, hashes []string) (map[string]struct{}, error)

	// CommitProjectBlob atomically stores the project dictionary/document
	// pair and purges the project's autosave record.
	CommitProjectBlob(ctx context.Context, dict, doc []byte) error

	// CommitBlock atomically records the hash-index entry and the full
	// block payload.
	CommitBlock(ctx context.Context, hash string, block *models.DecodedBlock) error

	// GetSyncRecord returns the project's sync record, or nil when the
	// project has never been synced.
	GetSyncRecord(ctx context.Context) (*models.SyncRecord, error)

	// SaveSyncRecord upserts the project's sync record.
	SaveSyncRecord(ctx context.Context, rec models.SyncRecord) error

	// Close detaches the snapshot storage unit.
	Close(ctx context.Context) error
}
