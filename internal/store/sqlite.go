// SPDX-License-Identifier: Apache-2.0

// Package store implements the local side of the sync engine: the main
// SQLite database holding sync records and the block-hash index, plus the
// per-snapshot storage units attached under a generated namespace.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/soundpool/snapsync/internal/config"
	"github.com/soundpool/snapsync/internal/logger"
	"github.com/soundpool/snapsync/migrations"
)

// DB wraps the main sync database connection.
//
// The pool is pinned to a single connection: ATTACH DATABASE and registered
// scalar functions are per-connection in SQLite, and the snapshot storage
// units must stay visible to every statement the engine runs.
type DB struct {
	*sql.DB
	logger *logger.Logger

	// writeMu serializes all write transactions against the local store.
	// Sessions share one DB handle per process, so this is the process-wide
	// write-serialization lock; reads and downloads are unaffected.
	writeMu sync.Mutex

	// knownMu serializes known-block queries, which swap state into the
	// shared in_remote_blocks scalar function.
	knownMu sync.Mutex

	remote *remoteBlockSet
}

// remoteBlockSet backs the in_remote_blocks scalar function registered on
// the connection. The known-block query swaps the set in before running and
// clears it afterwards.
type remoteBlockSet struct {
	mu     sync.Mutex
	hashes map[string]struct{}
}

func (s *remoteBlockSet) contains(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.hashes[hash]
	return ok
}

func (s *remoteBlockSet) replace(hashes map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes = hashes
}

// Open connects to the main sync database, registers the in_remote_blocks
// scalar function and applies migrations. Each call registers its own
// uniquely named driver so the function closure is bound to this handle.
func Open(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error) {
	if err := createLocalDBFileIfNotExists(cfg.DSN); err != nil {
		log.Err(err).Str("func", "Open").Msg("error creating database file")
		return nil, fmt.Errorf("error creating database file: %w", err)
	}

	remote := &remoteBlockSet{}

	driverName := "sqlite3_snapsync_" + uuid.NewString()
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("in_remote_blocks", func(hash string) bool {
				return remote.contains(hash)
			}, false)
		},
	})

	conn, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		log.Err(err).Str("func", "Open").Msg("error connecting database")
		return nil, fmt.Errorf("error opening connection to DB: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "Open").Msg("error connecting database (ping)")
		conn.Close()
		return nil, err
	}

	if err = migrations.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}

	log.Debug().Str("func", "Open").Msg("connected to database successfully")

	return &DB{
		DB:     conn,
		logger: log,
		remote: remote,
	}, nil
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if dbFile == "" || dbFile == ":memory:" {
		return nil
	}

	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}

	return nil
}
