// SPDX-License-Identifier: Apache-2.0

// Command snapsync downloads one snapshot of a cloud project into a local
// project file:
//
//	snapsync [flags] <project-id> <snapshot-id> <local-path>
//
// The snapshot manifest is fetched from the service endpoint, blocks
// already present locally are skipped, and progress is printed as the
// remaining blocks are committed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soundpool/snapsync/internal/config"
	"github.com/soundpool/snapsync/internal/logger"
	"github.com/soundpool/snapsync/internal/snapshot"
	"github.com/soundpool/snapsync/internal/store"
	"github.com/soundpool/snapsync/internal/transport"
	"github.com/soundpool/snapsync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewConsoleLogger("snapsync", os.Stderr)

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	args := flag.Args()
	if len(args) != 3 {
		log.Fatal().Msg("usage: snapsync [flags] <project-id> <snapshot-id> <local-path>")
	}
	projectID, snapshotID, localPath := args[0], args[1], args[2]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open sync database")
	}
	defer db.Close()

	client := transport.NewClient(transport.Config{
		BaseURL:       cfg.Transport.BaseURL,
		Timeout:       cfg.Transport.RequestTimeout.Std(),
		RetryCount:    cfg.Transport.RetryCount,
		RetryWaitTime: cfg.Transport.RetryWaitTime.Std(),
	}, log)

	info, err := client.GetSnapshot(ctx, projectID, snapshotID)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch snapshot manifest")
	}

	var final models.Progress
	callback := func(p models.Progress) {
		final = p
		log.Info().
			Uint("downloaded", p.DownloadedBlocks).
			Uint("missing", p.MissingBlocks).
			Bool("project", p.ProjectDownloaded).
			Msg("progress")
	}

	sess, err := snapshot.Sync(ctx, snapshot.Deps{
		DB:      db,
		Fetcher: client,
		Logger:  log,
		Options: snapshot.Options{
			MaxConcurrentRequests: cfg.Sync.MaxConcurrentRequests,
			DispatchDelay:         cfg.Sync.DispatchDelay.Std(),
		},
	}, models.ProjectInfo{ID: projectID}, info, localPath, callback)
	if err != nil {
		log.Fatal().Err(err).Msg("start sync session")
	}

	select {
	case <-sess.Done():
	case <-ctx.Done():
		sess.Cancel()
	}

	if err := sess.Close(); err != nil {
		log.Warn().Err(err).Msg("close sync session")
	}

	switch {
	case final.Cancelled:
		log.Warn().Msg("sync cancelled")
		os.Exit(130)
	case final.Error != "":
		log.Error().Str("error", final.Error).Msg("sync failed")
		os.Exit(1)
	default:
		log.Info().
			Uint("blocks", final.DownloadedBlocks).
			Msg("snapshot synced")
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
