// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/soundpool/snapsync/models"
)

var (
	// ErrBlockDecompress is returned when a block payload is not a valid
	// zstd frame.
	ErrBlockDecompress = errors.New("block payload decompression failed")
	// ErrBlockTruncated is returned when the decompressed stream ends
	// before all declared fields have been read.
	ErrBlockTruncated = errors.New("block payload truncated")
)

// summaryLimit bounds the declared summary lengths so a corrupt header
// cannot force a huge allocation before the read fails.
const summaryLimit = 1 << 24

var (
	blockDecoder *zstd.Decoder
	blockEncoder *zstd.Encoder
)

func init() {
	blockDecoder, _ = zstd.NewReader(nil)
	blockEncoder, _ = zstd.NewWriter(nil)
}

// DecodeBlock decompresses and parses a downloaded block payload. The
// decompressed stream is little-endian:
//
//	blockID int64 · format uint32 · min,max,rms float32 ·
//	n uint32 · n summary-256 cells · m uint32 · m summary-64k cells ·
//	remaining bytes = raw samples
//
// Any framing violation is fatal for the block and must not be retried.
func DecodeBlock(compressed []byte) (*models.DecodedBlock, error) {
	raw, err := blockDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBlockDecompress, err)
	}

	r := bytes.NewReader(raw)
	block := &models.DecodedBlock{}

	if err := binary.Read(r, binary.LittleEndian, &block.BlockID); err != nil {
		return nil, fmt.Errorf("%w: block id: %w", ErrBlockTruncated, err)
	}

	var format uint32
	if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
		return nil, fmt.Errorf("%w: sample format: %w", ErrBlockTruncated, err)
	}
	block.Format = models.SampleFormat(format)

	if err := binary.Read(r, binary.LittleEndian, &block.Block); err != nil {
		return nil, fmt.Errorf("%w: block summary: %w", ErrBlockTruncated, err)
	}

	if block.Summary256, err = readSummary(r); err != nil {
		return nil, fmt.Errorf("summary256: %w", err)
	}
	if block.Summary64k, err = readSummary(r); err != nil {
		return nil, fmt.Errorf("summary64k: %w", err)
	}

	block.Samples = make([]byte, r.Len())
	if _, err := r.Read(block.Samples); err != nil && r.Len() > 0 {
		return nil, fmt.Errorf("%w: samples: %w", ErrBlockTruncated, err)
	}

	return block, nil
}

// EncodeBlock is the inverse of DecodeBlock. It exists for the stub server
// and for tests; the sync engine itself only decodes.
func EncodeBlock(block *models.DecodedBlock) []byte {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.LittleEndian, block.BlockID)
	_ = binary.Write(buf, binary.LittleEndian, uint32(block.Format))
	_ = binary.Write(buf, binary.LittleEndian, block.Block)

	writeSummary(buf, block.Summary256)
	writeSummary(buf, block.Summary64k)
	buf.Write(block.Samples)

	return blockEncoder.EncodeAll(buf.Bytes(), nil)
}

func readSummary(r *bytes.Reader) ([]models.MinMaxRMS, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: length: %w", ErrBlockTruncated, err)
	}
	if n > summaryLimit {
		return nil, fmt.Errorf("%w: declared %d cells", ErrBlockTruncated, n)
	}

	cells := make([]models.MinMaxRMS, n)
	if err := binary.Read(r, binary.LittleEndian, cells); err != nil {
		return nil, fmt.Errorf("%w: cells: %w", ErrBlockTruncated, err)
	}

	return cells, nil
}

func writeSummary(buf *bytes.Buffer, cells []models.MinMaxRMS) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(cells)))
	_ = binary.Write(buf, binary.LittleEndian, cells)
}
