package store

import (
	"context"
	"fmt"
	"strings"
)

// SnapshotDBName returns the schema name a project's snapshot storage is
// attached under.
func SnapshotDBName(projectID string) string {
	return "s_" + projectID
}

// attachSnapshot attaches the snapshot storage file at path under the given
// schema name and bootstraps its tables when the file is new. Schema names
// cannot be bound as statement parameters, so the name is quoted inline.
func (db *DB) attachSnapshot(ctx context.Context, path, name string) error {
	stmt := fmt.Sprintf("ATTACH DATABASE ? AS %s", quoteIdent(name))
	if _, err := db.ExecContext(ctx, stmt, path); err != nil {
		return fmt.Errorf("attach snapshot database: %w", err)
	}

	if err := db.ensureSnapshotSchema(ctx, name); err != nil {
		detach := fmt.Sprintf("DETACH DATABASE %s", quoteIdent(name))
		_, _ = db.ExecContext(ctx, detach)
		return err
	}

	return nil
}

// detachSnapshot releases the attachment created by attachSnapshot.
func (db *DB) detachSnapshot(ctx context.Context, name string) error {
	stmt := fmt.Sprintf("DETACH DATABASE %s", quoteIdent(name))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("detach snapshot database: %w", err)
	}
	return nil
}

func (db *DB) ensureSnapshotSchema(ctx context.Context, name string) error {
	q := quoteIdent(name)

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.project (
			id   INTEGER PRIMARY KEY,
			dict BLOB,
			doc  BLOB
		)`, q),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.autosave (
			id   INTEGER PRIMARY KEY,
			dict BLOB,
			doc  BLOB
		)`, q),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.sampleblocks (
			blockid      INTEGER PRIMARY KEY,
			sampleformat INTEGER,
			summin       REAL,
			summax       REAL,
			sumrms       REAL,
			summary256   BLOB,
			summary64k   BLOB,
			samples      BLOB
		)`, q),
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure snapshot schema: %w", err)
		}
	}

	return nil
}

// quoteIdent quotes a SQLite identifier, escaping embedded quotes. Project
// ids are opaque strings and cannot be trusted as bare identifiers.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
