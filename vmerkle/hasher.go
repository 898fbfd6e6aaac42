// Package vmerkle declares the hashing contract shared by every
// Merkle tree shape in this module.
//
// The tree engines in the vtree package never hash bytes themselves;
// they delegate to a [Hasher], so that the digest function can be
// swapped without touching any tree logic.
package vmerkle

// Hasher is the user-defined interface for hashing blocks and
// combining child digests into parent digests.
//
// To be allocation-efficient, the Hasher implementation
// must append its hash output to dst, instead of creating a new byte slice.
// Hasher must not retain references to the dst slice.
//
// Node must be order-sensitive: swapping left and right must,
// with overwhelming probability, produce a different digest.
// This is what allows a proof's left/right tags
// to pin down the original tree shape.
//
// Furthermore, Hasher methods must be safe to call concurrently.
type Hasher interface {
	Leaf(in []byte, dst []byte)
	Node(left, right []byte, dst []byte)
}
