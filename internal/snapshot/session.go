// SPDX-License-Identifier: Apache-2.0

// Package snapshot implements the remote-to-local project snapshot sync
// session: dedup against the local store, a bounded request scheduler, the
// download pipeline and the transactional commit path.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soundpool/snapsync/internal/logger"
	"github.com/soundpool/snapsync/internal/store"
	"github.com/soundpool/snapsync/internal/transport"
	"github.com/soundpool/snapsync/models"
)

// ErrAttachFailed is returned by Sync when the local snapshot storage could
// not be attached. The failure callback has already been delivered.
var ErrAttachFailed = errors.New("failed to attach to the cloud project database")

// Options tunes the request scheduler.
type Options struct {
	// MaxConcurrentRequests caps simultaneous network operations.
	// Defaults to 6.
	MaxConcurrentRequests int
	// DispatchDelay is the politeness pause between dispatches.
	// Defaults to 50ms.
	DispatchDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrentRequests <= 0 {
		o.MaxConcurrentRequests = 6
	}
	if o.DispatchDelay <= 0 {
		o.DispatchDelay = 50 * time.Millisecond
	}
	return o
}

// Deps are the collaborators a session is built from.
type Deps struct {
	DB      *store.DB
	Fetcher transport.Fetcher
	Logger  *logger.Logger
	Options Options
}

type requestKind int

const (
	requestProjectBlob requestKind = iota
	requestBlock
)

// pendingRequest is one unit of scheduled work. For requestBlock the hash
// is already normalized to upper case.
type pendingRequest struct {
	kind requestKind
	url  string
	hash string
}

// Session downloads one snapshot of a cloud project into the local store.
// Progress, completion, failure and cancellation are all reported through
// the single callback passed to Sync.
type Session struct {
	project  models.ProjectInfo
	snapshot models.SnapshotInfo
	store    store.SessionStore
	fetcher  transport.Fetcher
	callback models.ProgressFunc
	logger   *logger.Logger
	opts     Options

	localPath string

	missingBlocks uint

	downloadedBlocks  atomic.Uint64
	projectDownloaded atomic.Bool
	failed            atomic.Bool
	cancelled         atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	requests []pendingRequest
	// slots is the in-flight semaphore: capacity is the concurrency
	// ceiling, a held slot is one dispatched request.
	slots chan struct{}
	// stopDispatch wakes the scheduler when a failure makes further
	// dispatch pointless. Already-dispatched requests are left to drain.
	stopDispatch     chan struct{}
	stopDispatchOnce sync.Once

	wg sync.WaitGroup

	// reportMu serializes every callback emission and guards the
	// terminal-report-once invariant.
	reportMu     sync.Mutex
	terminalSent bool
	done         chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Sync attaches the local snapshot storage at localPath, computes the
// known-block set and either short-circuits (snapshot already fully synced)
// or starts the background scheduler. On attach failure the callback is
// invoked once with a failure report and no session is returned.
//
// The returned session must be closed; Close cancels outstanding work,
// waits for the scheduler and detaches the storage.
func Sync(ctx context.Context, deps Deps, project models.ProjectInfo, snap models.SnapshotInfo, localPath string, callback models.ProgressFunc) (*Session, error) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	st, err := store.AttachSnapshotStore(ctx, deps.DB, project.ID, localPath, log)
	if err != nil {
		log.Err(err).Str("project_id", project.ID).Msg("attach snapshot storage")
		callback(models.Progress{Error: ErrAttachFailed.Error()})
		return nil, fmt.Errorf("%w: %w", ErrAttachFailed, err)
	}

	return newSession(ctx, st, deps.Fetcher, deps.Options, project, snap, localPath, callback, log)
}

// newSession runs the synchronous part of session construction against an
// already attached store. Split from Sync so tests can supply their own
// SessionStore implementation.
func newSession(ctx context.Context, st store.SessionStore, fetcher transport.Fetcher, opts Options, project models.ProjectInfo, snap models.SnapshotInfo, localPath string, callback models.ProgressFunc, log *logger.Logger) (*Session, error) {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	opts = opts.withDefaults()

	s := &Session{
		project:      project,
		snapshot:     snap,
		store:        st,
		fetcher:      fetcher,
		callback:     callback,
		logger:       log,
		opts:         opts,
		localPath:    localPath,
		ctx:          sctx,
		cancel:       cancel,
		slots:        make(chan struct{}, opts.MaxConcurrentRequests),
		stopDispatch: make(chan struct{}),
		done:         make(chan struct{}),
	}

	known := s.calculateKnownBlocks(ctx)

	if len(known) == len(snap.Blocks) {
		rec, err := st.GetSyncRecord(ctx)
		if err == nil && rec != nil && rec.SnapshotID == snap.ID && rec.Status == models.SyncStatusSynced {
			s.markTerminal()
			s.callback(models.Progress{
				ProjectDownloaded: true,
				Completed:         true,
				Success:           true,
			})
			return s, nil
		}
	}

	if err := s.saveSyncRecord(ctx, models.SyncStatusDownloading, localPath); err != nil {
		s.markTerminal()
		msg := "failed to update the cloud project record"
		s.callback(models.Progress{Error: msg})
		_ = st.Close(context.WithoutCancel(ctx))
		cancel()
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	s.missingBlocks = uint(len(snap.Blocks) - len(known))

	s.requests = make([]pendingRequest, 0, 1+s.missingBlocks)
	s.requests = append(s.requests, pendingRequest{kind: requestProjectBlob, url: snap.FileURL})

	for _, block := range snap.Blocks {
		hash := strings.ToUpper(block.Hash)
		if _, ok := known[hash]; ok {
			continue
		}
		s.requests = append(s.requests, pendingRequest{kind: requestBlock, url: block.URL, hash: hash})
	}

	s.wg.Add(1)
	go s.run()

	return s, nil
}

// Cancel requests cooperative cancellation: it aborts every in-flight
// network operation and synchronously emits the terminal cancelled report
// with whatever counts have accumulated. Idempotent; a no-op after the
// session has already finished.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
	s.cancel()

	s.emit(models.Progress{
		DownloadedBlocks:  uint(s.downloadedBlocks.Load()),
		MissingBlocks:     s.missingBlocks,
		ProjectDownloaded: s.projectDownloaded.Load(),
		Cancelled:         true,
	}, true)
}

// Close requests cancellation if the session has not finished, waits for
// the scheduler and all in-flight handlers to drain, and detaches the local
// storage. No report is emitted beyond what Cancel already produced.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancelled.Store(true)
		s.cancel()
		s.wg.Wait()
		s.closeErr = s.store.Close(context.Background())
	})
	return s.closeErr
}

// Done is closed once the terminal report (completed, failed or cancelled)
// has been emitted.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) saveSyncRecord(ctx context.Context, status models.SyncStatus, localPath string) error {
	return s.store.SaveSyncRecord(ctx, models.SyncRecord{
		ProjectID:  s.project.ID,
		SnapshotID: s.snapshot.ID,
		Status:     status,
		LastRead:   time.Now().Unix(),
		LocalPath:  localPath,
	})
}

// markTerminal flags the session as finished without emitting anything.
// Used by the construction paths that report directly.
func (s *Session) markTerminal() {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	if !s.terminalSent {
		s.terminalSent = true
		close(s.done)
	}
}
