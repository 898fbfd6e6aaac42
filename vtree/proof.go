package vtree

import (
	"bytes"
	"math/bits"
)

// Side tags a proof sibling with its position
// relative to the node being proven.
type Side uint8

const (
	// Left means the sibling sits to the left of the path node,
	// so it is the first argument when re-combining.
	Left Side = iota

	// Right means the sibling sits to the right of the path node.
	Right
)

// SiblingNode is one entry of a single-block inclusion proof:
// a sibling digest along the path from the proven leaf to the root.
type SiblingNode struct {
	Side Side
	Hash []byte
}

// Proof is a sibling path ordered from the leaf level up,
// excluding the root itself.
type Proof []SiblingNode

// GenerateProof builds the padded tree over blocks and returns its root
// together with the sibling path for the block at index.
//
// A single-block sequence produces an empty proof:
// its root is the block's own digest.
//
// Returns [IndexOutOfRangeError] if index does not address a real block.
func (s Scheme) GenerateProof(blocks [][]byte, index int) ([]byte, Proof, error) {
	s.check()

	if index < 0 || index >= len(blocks) {
		return nil, nil, IndexOutOfRangeError{Index: index, NumBlocks: len(blocks)}
	}

	level := s.paddedLeaves(blocks)

	proof := make(Proof, 0, bits.Len(uint(len(level)-1)))
	idx := index
	for len(level) > 1 {
		if idx&1 == 1 {
			proof = append(proof, SiblingNode{Side: Left, Hash: level[idx-1]})
		} else {
			proof = append(proof, SiblingNode{Side: Right, Hash: level[idx+1]})
		}

		level = s.foldPairs(level)
		idx >>= 1
	}

	return level[0], proof, nil
}

// ValidateProof reports whether proof connects the claimed block to root.
//
// ValidateProof never fails: malformed or dishonest input
// simply yields false, so it is safe to run against untrusted proofs.
func (s Scheme) ValidateProof(root []byte, block []byte, proof Proof) bool {
	s.check()

	cur := s.leaf(block)
	for _, sib := range proof {
		switch sib.Side {
		case Left:
			cur = s.node(sib.Hash, cur)
		case Right:
			cur = s.node(cur, sib.Hash)
		default:
			return false
		}
	}

	return bytes.Equal(cur, root)
}
