// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/soundpool/snapsync/internal/logger"
	"github.com/soundpool/snapsync/models"
)

// SnapshotStore binds the main database to one project's attached snapshot
// storage unit. It implements SessionStore.
type SnapshotStore struct {
	db        *DB
	projectID string
	name      string
	localPath string
	logger    *logger.Logger
}

var _ SessionStore = (*SnapshotStore)(nil)

// AttachSnapshotStore attaches the snapshot storage file at path under the
// project's namespace and returns a store bound to it. The caller owns the
// attachment and must Close it on every exit path.
func AttachSnapshotStore(ctx context.Context, db *DB, projectID, path string, log *logger.Logger) (*SnapshotStore, error) {
	name := SnapshotDBName(projectID)

	db.writeMu.Lock()
	err := db.attachSnapshot(ctx, path, name)
	db.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	return &SnapshotStore{
		db:        db,
		projectID: projectID,
		name:      name,
		localPath: path,
		logger:    log,
	}, nil
}

// Close detaches the snapshot storage unit.
func (s *SnapshotStore) Close(ctx context.Context) error {
	s.db.writeMu.Lock()
	defer s.db.writeMu.Unlock()
	return s.db.detachSnapshot(ctx, s.name)
}

// LocalPath returns the path the snapshot storage was attached from.
func (s *SnapshotStore) LocalPath() string {
	return s.localPath
}

// KnownBlocks intersects the snapshot's required hashes with the local
// hash index, counting only hashes whose block payload actually exists in
// the attached snapshot storage. A hash indexed without a stored payload is
// a leftover of a partially-completed sync and does not count as known.
func (s *SnapshotStore) KnownBlocks(ctx context.Context, hashes []string) (map[string]struct{}, error) {
	remote := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		remote[h] = struct{}{}
	}

	query, args, err := sq.Select("hash").
		From("block_hashes").
		Where(sq.Eq{"project_id": s.projectID}).
		Where(sq.Expr("in_remote_blocks(hash)")).
		Where(sq.Expr("block_id IN (SELECT blockid FROM " + quoteIdent(s.name) + ".sampleblocks)")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build known blocks query: %w", err)
	}

	// The scalar function reads the shared remote set, so the whole
	// replace-query-clear window is serialized across sessions.
	s.db.knownMu.Lock()
	defer s.db.knownMu.Unlock()

	s.db.remote.replace(remote)
	defer s.db.remote.replace(nil)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query known blocks: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan known block hash: %w", err)
		}
		known[hash] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate known blocks: %w", err)
	}

	return known, nil
}

// GetSyncRecord returns the project's sync record, or nil when the project
// has never been synced.
func (s *SnapshotStore) GetSyncRecord(ctx context.Context) (*models.SyncRecord, error) {
	query, args, err := sq.Select("project_id", "snapshot_id", "sync_status", "last_read", "local_path").
		From("projects").
		Where(sq.Eq{"project_id": s.projectID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sync record query: %w", err)
	}

	var rec models.SyncRecord
	row := s.db.QueryRowContext(ctx, query, args...)
	err = row.Scan(&rec.ProjectID, &rec.SnapshotID, &rec.Status, &rec.LastRead, &rec.LocalPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan sync record: %w", err)
	}

	return &rec, nil
}

// SaveSyncRecord upserts the project's sync record under the write lock.
func (s *SnapshotStore) SaveSyncRecord(ctx context.Context, rec models.SyncRecord) error {
	s.db.writeMu.Lock()
	defer s.db.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, upsertSyncRecord,
		rec.ProjectID, rec.SnapshotID, rec.Status, rec.LastRead, rec.LocalPath)
	if err != nil {
		return fmt.Errorf("save sync record: %w", err)
	}

	return nil
}
