// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/soundpool/snapsync/models"
)

// CommitProjectBlob stores the project's dictionary/document pair and
// deletes any stale autosave record in a single transaction. Runs under the
// process-wide write lock so only one commit is in flight at a time.
func (s *SnapshotStore) CommitProjectBlob(ctx context.Context, dict, doc []byte) error {
	s.db.writeMu.Lock()
	defer s.db.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project blob transaction: %w", err)
	}
	defer tx.Rollback()

	q := quoteIdent(s.name)

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(upsertProjectBlob, q), dict, doc); err != nil {
		return fmt.Errorf("upsert project blob: %w", err)
	}

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(deleteAutosave, q)); err != nil {
		return fmt.Errorf("delete stale autosave: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit project blob transaction: %w", err)
	}

	s.logger.Debug().
		Str("project_id", s.projectID).
		Int("dict_bytes", len(dict)).
		Int("doc_bytes", len(doc)).
		Msg("project blob committed")

	return nil
}

// CommitBlock records the (projectID, blockID) -> hash index entry and the
// full block payload in a single transaction. Either both rows become
// visible or neither does.
func (s *SnapshotStore) CommitBlock(ctx context.Context, hash string, block *models.DecodedBlock) error {
	s.db.writeMu.Lock()
	defer s.db.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin block transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, upsertBlockHash, s.projectID, block.BlockID, hash); err != nil {
		return fmt.Errorf("upsert block hash: %w", err)
	}

	stmt := fmt.Sprintf(upsertSampleBlock, quoteIdent(s.name))
	_, err = tx.ExecContext(ctx, stmt,
		block.BlockID,
		int64(block.Format),
		block.Block.Min,
		block.Block.Max,
		block.Block.RMS,
		marshalSummary(block.Summary256),
		marshalSummary(block.Summary64k),
		block.Samples,
	)
	if err != nil {
		return fmt.Errorf("upsert sample block: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit block transaction: %w", err)
	}

	s.logger.Debug().
		Str("project_id", s.projectID).
		Int64("block_id", block.BlockID).
		Str("hash", hash).
		Msg("block committed")

	return nil
}

// marshalSummary flattens summary cells to the little-endian byte layout
// the sampleblocks table stores.
func marshalSummary(cells []models.MinMaxRMS) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(cells) * 12)
	_ = binary.Write(buf, binary.LittleEndian, cells)
	return buf.Bytes()
}
