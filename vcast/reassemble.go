package vcast

import (
	"bytes"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// ReassembleData rebuilds the original data of an erasure-coded archive
// from verified blocks, keyed by block index.
// Any NumData distinct blocks suffice when the archive carries parity;
// without parity, every data block must be present.
//
// The blocks must already be verified against the trusted root.
// Reassembly itself proves nothing.
func ReassembleData(info RootInfo, blocks map[int][]byte) ([]byte, error) {
	if info.DataSize == 0 {
		return nil, fmt.Errorf("archive was not erasure-coded from contiguous data")
	}
	if len(blocks) < info.NumData {
		return nil, fmt.Errorf(
			"not enough blocks to reassemble: have %d, need %d",
			len(blocks), info.NumData,
		)
	}

	total := info.NumBlocks()
	shards := make([][]byte, total)
	for i, b := range blocks {
		if i < 0 || i >= total {
			return nil, fmt.Errorf(
				"block index %d outside archive of %d blocks", i, total,
			)
		}
		shards[i] = b
	}

	if info.NumParity == 0 {
		out := make([]byte, 0, info.DataSize)
		for i := range info.NumData {
			if shards[i] == nil {
				return nil, fmt.Errorf("missing data block %d and no parity to recover it", i)
			}
			out = append(out, shards[i]...)
		}
		return out[:info.DataSize], nil
	}

	enc, err := reedsolomon.New(info.NumData, info.NumParity)
	if err != nil {
		return nil, fmt.Errorf("failed to build Reed-Solomon encoder: %w", err)
	}

	if err := enc.ReconstructData(shards); err != nil {
		return nil, fmt.Errorf("failed to reconstruct data blocks: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(info.DataSize)
	if err := enc.Join(&buf, shards, info.DataSize); err != nil {
		return nil, fmt.Errorf("failed to join data blocks: %w", err)
	}

	return buf.Bytes(), nil
}
