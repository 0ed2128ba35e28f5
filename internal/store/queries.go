// SPDX-License-Identifier: Apache-2.0

package store

// Upsert statements used by the commit layer. Statements that touch the
// attached snapshot storage carry a %s placeholder for the quoted schema
// name, which cannot be bound as a parameter.
const (
	upsertProjectBlob = `
		INSERT INTO %s.project (id, dict, doc)
		VALUES (1, ?1, ?2)
		ON CONFLICT(id) DO UPDATE SET dict = ?1, doc = ?2;`

	deleteAutosave = `
		DELETE FROM %s.autosave WHERE id = 1;`

	upsertBlockHash = `
		INSERT INTO block_hashes (project_id, block_id, hash)
		VALUES (?1, ?2, ?3)
		ON CONFLICT(project_id, block_id) DO UPDATE SET hash = ?3;`

	upsertSampleBlock = `
		INSERT INTO %s.sampleblocks (
			blockid,
			sampleformat,
			summin,
			summax,
			sumrms,
			summary256,
			summary64k,
			samples
		) VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)
		ON CONFLICT(blockid) DO UPDATE SET
			sampleformat = ?2,
			summin       = ?3,
			summax       = ?4,
			sumrms       = ?5,
			summary256   = ?6,
			summary64k   = ?7,
			samples      = ?8;`

	upsertSyncRecord = `
		INSERT INTO projects (project_id, snapshot_id, sync_status, last_read, local_path)
		VALUES (?1, ?2, ?3, ?4, ?5)
		ON CONFLICT(project_id) DO UPDATE SET
			snapshot_id = ?2,
			sync_status = ?3,
			last_read   = ?4,
			local_path  = ?5;`
)
