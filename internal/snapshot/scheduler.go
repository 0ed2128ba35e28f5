// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"time"

	"github.com/soundpool/snapsync/internal/codec"
	"github.com/soundpool/snapsync/internal/transport"
)

// run is the scheduler goroutine. It walks the pending-request list in
// order (project blob first, then blocks in snapshot order), never keeping
// more than the concurrency ceiling in flight. Requests are dispatched in
// list order but complete out of order; commit order is unordered.
func (s *Session) run() {
	defer s.wg.Done()

	for _, req := range s.requests {
		select {
		case s.slots <- struct{}{}:
		case <-s.ctx.Done():
			return
		case <-s.stopDispatch:
			return
		}

		if s.failed.Load() || s.cancelled.Load() {
			<-s.slots
			return
		}

		s.wg.Add(1)
		go s.dispatch(req)

		// Politeness throttle between dispatches.
		select {
		case <-time.After(s.opts.DispatchDelay):
		case <-s.ctx.Done():
			return
		}
	}
}

// dispatch performs one download and routes the outcome. Transient server
// errors are retried inside the fetcher; by the time an error surfaces here
// it is final. A cancelled fetch is cleanup only: the slot is released and
// nothing is reported.
func (s *Session) dispatch(req pendingRequest) {
	defer s.wg.Done()
	defer func() { <-s.slots }()

	payload, err := s.fetcher.FetchBlob(s.ctx, req.url)
	if err != nil {
		if transport.Classify(err) == transport.ErrorKindCancelled {
			return
		}
		s.fail("failed to download the cloud project: " + err.Error())
		return
	}

	switch req.kind {
	case requestProjectBlob:
		s.commitProjectBlob(payload)
	case requestBlock:
		s.commitBlock(req.hash, payload)
	}
}

// commitProjectBlob validates the blob framing and commits the dictionary
// and document atomically. Malformed framing is fatal, never retried.
func (s *Session) commitProjectBlob(payload []byte) {
	dict, doc, err := codec.SplitProjectBlob(payload)
	if err != nil {
		s.fail("failed to download the cloud project: " + err.Error())
		return
	}

	if err := s.store.CommitProjectBlob(s.ctx, dict, doc); err != nil {
		s.fail("failed to update the cloud project: " + err.Error())
		return
	}

	s.projectDownloaded.Store(true)
	s.reportProgress()
}

// commitBlock decompresses a block payload and commits the hash-index entry
// and the block row in one transaction. Decompression failure is fatal for
// the block; the downloaded counter moves only after the commit.
func (s *Session) commitBlock(hash string, payload []byte) {
	block, err := codec.DecodeBlock(payload)
	if err != nil {
		s.fail("failed to decompress the cloud project block: " + err.Error())
		return
	}

	if err := s.store.CommitBlock(s.ctx, hash, block); err != nil {
		s.fail("failed to update the cloud project block: " + err.Error())
		return
	}

	s.downloadedBlocks.Add(1)
	s.reportProgress()
}
