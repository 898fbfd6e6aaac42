package vtree

import (
	"bytes"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// CompactMultiproof proves many blocks of one collection
// with a deduplicated set of sibling digests.
type CompactMultiproof struct {
	// The leaf indices requested at generation time, in request order.
	// Claimed blocks at validation time must follow the same order.
	LeafIndices []int

	// The fill-in digests the verifier cannot derive
	// from the claimed blocks alone, in consumption order:
	// level by level starting at the leaves,
	// left to right within a level.
	Hashes [][]byte

	// The total leaf count of the ragged tree.
	// The verifier needs it to reproduce the tree shape:
	// the same indices describe different odd-carry layouts
	// for different collection sizes.
	NLeaves int
}

// GenerateMultiproof builds the ragged (unpadded) tree over blocks
// and returns its root together with a compact multiproof
// for the blocks at the given indices.
//
// Unlike the padded single-proof tree, the ragged tree
// has exactly one leaf per block; a level with an odd count
// carries its trailing node up unpaired.
// An empty block sequence yields the empty-block digest as root,
// matching the [Scheme.BuildRoot] convention.
//
// Returns [IndexOutOfRangeError] if any index does not address
// a real block, or [DuplicateIndexError] if an index repeats.
func (s Scheme) GenerateMultiproof(blocks [][]byte, indices []int) ([]byte, CompactMultiproof, error) {
	s.check()

	requested := bitset.New(uint(len(blocks)))
	for _, idx := range indices {
		if idx < 0 || idx >= len(blocks) {
			return nil, CompactMultiproof{}, IndexOutOfRangeError{
				Index: idx, NumBlocks: len(blocks),
			}
		}
		if requested.Test(uint(idx)) {
			return nil, CompactMultiproof{}, DuplicateIndexError{Index: idx}
		}
		requested.Set(uint(idx))
	}

	if len(blocks) == 0 {
		return s.leaf(nil), CompactMultiproof{}, nil
	}

	level := make([]raggedNode, len(blocks))
	for i, b := range blocks {
		level[i] = raggedNode{
			known: requested.Test(uint(i)),
			hash:  s.leaf(b),
		}
	}

	// The generator knows every digest,
	// so climbing can never run out of fill-ins.
	f := &fillIns{recording: true}
	for len(level) > 1 {
		level, _ = s.climbRagged(level, f)
	}

	mp := CompactMultiproof{
		LeafIndices: slices.Clone(indices),
		Hashes:      f.hashes,
		NLeaves:     len(blocks),
	}
	return level[0].hash, mp, nil
}

// ValidateMultiproof reports whether mp connects the claimed blocks
// to root. Block i is checked against leaf mp.LeafIndices[i].
//
// ValidateMultiproof never fails: mismatched lengths, a repeated index,
// an index outside the tree, too few or too many fill-in digests,
// and digest mismatches all yield false.
// The repeated-index check is a soundness guard:
// without it a forged proof could claim the same leaf twice.
func (s Scheme) ValidateMultiproof(root []byte, blocks [][]byte, mp CompactMultiproof) bool {
	s.check()

	if len(blocks) != len(mp.LeafIndices) {
		return false
	}
	if len(blocks) == 0 || mp.NLeaves <= 0 || len(blocks) > mp.NLeaves {
		return false
	}

	claimed := bitset.New(uint(mp.NLeaves))
	level := make([]raggedNode, mp.NLeaves)
	for i, idx := range mp.LeafIndices {
		if idx < 0 || idx >= mp.NLeaves {
			return false
		}
		if claimed.Test(uint(idx)) {
			return false
		}
		claimed.Set(uint(idx))

		level[idx] = raggedNode{known: true, hash: s.leaf(blocks[i])}
	}

	f := &fillIns{hashes: mp.Hashes}
	for len(level) > 1 {
		var ok bool
		level, ok = s.climbRagged(level, f)
		if !ok {
			// Fill-in list exhausted before the shape demanded.
			return false
		}
	}

	if len(f.hashes) != 0 {
		// Every fill-in must be consumed exactly once.
		return false
	}

	return level[0].known && bytes.Equal(level[0].hash, root)
}
