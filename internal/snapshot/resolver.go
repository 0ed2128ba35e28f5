package snapshot

import (
	"context"
	"strings"
)

// calculateKnownBlocks computes which of the snapshot's required blocks are
// already satisfied locally. Hashes are normalized to upper case before the
// lookup so comparison never drifts on letter case. A lookup failure is
// treated as "nothing known": the session then re-downloads everything,
// which is safe because every commit is an idempotent upsert.
func (s *Session) calculateKnownBlocks(ctx context.Context) map[string]struct{} {
	if len(s.snapshot.Blocks) == 0 {
		return nil
	}

	hashes := make([]string, 0, len(s.snapshot.Blocks))
	for _, block := range s.snapshot.Blocks {
		hashes = append(hashes, strings.ToUpper(block.Hash))
	}

	known, err := s.store.KnownBlocks(ctx, hashes)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("project_id", s.project.ID).
			Msg("known-block lookup failed, assuming no local blocks")
		return nil
	}

	return known
}
