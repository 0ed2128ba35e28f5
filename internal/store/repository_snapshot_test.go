package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundpool/snapsync/internal/config"
	"github.com/soundpool/snapsync/internal/logger"
	"github.com/soundpool/snapsync/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), config.DB{
		DSN: filepath.Join(t.TempDir(), "main.db"),
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestStore(t *testing.T, db *DB, projectID string) *SnapshotStore {
	t.Helper()

	s, err := AttachSnapshotStore(context.Background(), db, projectID,
		filepath.Join(t.TempDir(), "snapshot.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	return s
}

func testBlock(id int64) *models.DecodedBlock {
	return &models.DecodedBlock{
		BlockID:    id,
		Format:     models.SampleFormatFloat32,
		Block:      models.MinMaxRMS{Min: -1, Max: 1, RMS: 0.5},
		Summary256: []models.MinMaxRMS{{Min: -1, Max: 1, RMS: 0.5}},
		Summary64k: []models.MinMaxRMS{{Min: -1, Max: 1, RMS: 0.5}},
		Samples:    []byte{1, 2, 3, 4},
	}
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"projects", "block_hashes"} {
		var name string
		err := db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestAttachSnapshotStore_BootstrapsSchema(t *testing.T) {
	db := newTestDB(t)
	newTestStore(t, db, "p1")

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM "s_p1".sampleblocks`).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSnapshotStore_CloseDetaches(t *testing.T) {
	db := newTestDB(t)
	s, err := AttachSnapshotStore(context.Background(), db, "p1",
		filepath.Join(t.TempDir(), "snapshot.db"), logger.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Close(context.Background()))

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM "s_p1".sampleblocks`).Scan(&count)
	require.Error(t, err, "snapshot schema should be gone after detach")
}

func TestCommitBlock_BecomesKnown(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db, "p1")
	ctx := context.Background()

	require.NoError(t, s.CommitBlock(ctx, "AABB", testBlock(7)))

	known, err := s.KnownBlocks(ctx, []string{"AABB", "CCDD"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"AABB": {}}, known)
}

func TestKnownBlocks_IndexedHashWithoutPayloadNotKnown(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db, "p1")
	ctx := context.Background()

	// Leftover of a partially-completed sync: hash row without a payload.
	_, err := db.Exec(upsertBlockHash, "p1", int64(7), "AABB")
	require.NoError(t, err)

	known, err := s.KnownBlocks(ctx, []string{"AABB"})
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestKnownBlocks_ScopedToProject(t *testing.T) {
	db := newTestDB(t)
	s1 := newTestStore(t, db, "p1")
	s2 := newTestStore(t, db, "p2")
	ctx := context.Background()

	require.NoError(t, s1.CommitBlock(ctx, "AABB", testBlock(7)))

	known, err := s2.KnownBlocks(ctx, []string{"AABB"})
	require.NoError(t, err)
	assert.Empty(t, known, "another project's hash index must not count")
}

func TestCommitBlock_UpsertIdempotent(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db, "p1")
	ctx := context.Background()

	require.NoError(t, s.CommitBlock(ctx, "AABB", testBlock(7)))
	require.NoError(t, s.CommitBlock(ctx, "AABB", testBlock(7)))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "s_p1".sampleblocks`).Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM block_hashes`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCommitProjectBlob_StoresAndPurgesAutosave(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db, "p1")
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO "s_p1".autosave (id, dict, doc) VALUES (1, x'00', x'00')`)
	require.NoError(t, err)

	require.NoError(t, s.CommitProjectBlob(ctx, []byte("dict"), []byte("doc")))

	var dict, doc []byte
	require.NoError(t, db.QueryRow(`SELECT dict, doc FROM "s_p1".project WHERE id = 1`).Scan(&dict, &doc))
	assert.Equal(t, []byte("dict"), dict)
	assert.Equal(t, []byte("doc"), doc)

	var autosaves int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "s_p1".autosave`).Scan(&autosaves))
	assert.Zero(t, autosaves)

	// Re-committing replaces instead of duplicating.
	require.NoError(t, s.CommitProjectBlob(ctx, []byte("dict2"), []byte("doc2")))

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "s_p1".project`).Scan(&rows))
	assert.Equal(t, 1, rows)
	require.NoError(t, db.QueryRow(`SELECT doc FROM "s_p1".project WHERE id = 1`).Scan(&doc))
	assert.Equal(t, []byte("doc2"), doc)
}

func TestSyncRecord_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db, "p1")
	ctx := context.Background()

	rec, err := s.GetSyncRecord(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec, "unknown project has no record")

	want := models.SyncRecord{
		ProjectID:  "p1",
		SnapshotID: "snap-1",
		Status:     models.SyncStatusDownloading,
		LastRead:   1700000000,
		LocalPath:  "/tmp/p1.db",
	}
	require.NoError(t, s.SaveSyncRecord(ctx, want))

	rec, err = s.GetSyncRecord(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, want, *rec)

	want.Status = models.SyncStatusSynced
	require.NoError(t, s.SaveSyncRecord(ctx, want))

	rec, err = s.GetSyncRecord(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, rec.Status)
}
