// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"

	"github.com/soundpool/snapsync/models"
)

// reportProgress emits a progress report after a successful commit. When
// the commit was the last outstanding one, the external sync record is
// flipped to Synced before the completed report goes out, so an observer
// that sees completed=true can rely on the record already reflecting it.
//
// The whole read-update-emit sequence runs under reportMu: reports are
// delivered in the order the counters were read, which keeps the reported
// counts monotonic even though commits finish on arbitrary goroutines.
func (s *Session) reportProgress() {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()

	if s.terminalSent || s.cancelled.Load() {
		return
	}

	downloaded := uint(s.downloadedBlocks.Load())
	projectDownloaded := s.projectDownloaded.Load()
	completed := downloaded == s.missingBlocks && projectDownloaded

	if completed {
		if err := s.saveSyncRecord(context.WithoutCancel(s.ctx), models.SyncStatusSynced, s.localPath); err != nil {
			s.failed.Store(true)
			s.stopDispatchOnce.Do(func() { close(s.stopDispatch) })
			s.emitLocked(models.Progress{
				DownloadedBlocks:  downloaded,
				MissingBlocks:     s.missingBlocks,
				Error:             "failed to update the cloud project record: " + err.Error(),
				ProjectDownloaded: projectDownloaded,
			}, true)
			return
		}
	}

	s.emitLocked(models.Progress{
		DownloadedBlocks:  downloaded,
		MissingBlocks:     s.missingBlocks,
		ProjectDownloaded: projectDownloaded,
		Completed:         completed,
		Success:           completed,
	}, completed)
}

// fail records the first fatal condition, stops the scheduler from
// dispatching further requests (in-flight ones drain on their own) and
// emits the single error-carrying terminal report.
func (s *Session) fail(msg string) {
	s.failed.Store(true)
	s.stopDispatchOnce.Do(func() { close(s.stopDispatch) })

	s.logger.Error().
		Str("project_id", s.project.ID).
		Str("snapshot_id", s.snapshot.ID).
		Msg(msg)

	s.emit(models.Progress{
		DownloadedBlocks:  uint(s.downloadedBlocks.Load()),
		MissingBlocks:     s.missingBlocks,
		Error:             msg,
		ProjectDownloaded: s.projectDownloaded.Load(),
	}, true)
}

// emit delivers a report unless a terminal report has already been sent.
// Terminal reports close the Done channel; at most one is ever delivered.
func (s *Session) emit(p models.Progress, terminal bool) {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	s.emitLocked(p, terminal)
}

func (s *Session) emitLocked(p models.Progress, terminal bool) {
	if s.terminalSent {
		return
	}
	if terminal {
		s.terminalSent = true
		close(s.done)
	}
	s.callback(p)
}
