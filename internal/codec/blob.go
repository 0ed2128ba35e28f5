// SPDX-License-Identifier: Apache-2.0

// Package codec implements the wire formats of the sync service: the framed
// project blob and the compressed sample-block payload.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrBlobTooShort is returned when a project blob payload is shorter
	// than its 8-byte length prefix.
	ErrBlobTooShort = errors.New("project blob shorter than length prefix")
	// ErrBlobDictOverflow is returned when the declared dictionary length
	// exceeds the remaining payload.
	ErrBlobDictOverflow = errors.New("project blob dictionary length exceeds payload")
)

const blobHeaderSize = 8

// SplitProjectBlob splits a downloaded project blob into its dictionary and
// document parts. The payload is framed as a little-endian uint64 dictionary
// length followed by the dictionary bytes; everything after the dictionary
// is the document. Malformed framing is a validation error, never retried.
func SplitProjectBlob(payload []byte) (dict, doc []byte, err error) {
	if len(payload) < blobHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrBlobTooShort, len(payload))
	}

	dictLen := binary.LittleEndian.Uint64(payload)
	rest := payload[blobHeaderSize:]

	if dictLen > uint64(len(rest)) {
		return nil, nil, fmt.Errorf("%w: declared %d, remaining %d", ErrBlobDictOverflow, dictLen, len(rest))
	}

	return rest[:dictLen], rest[dictLen:], nil
}
