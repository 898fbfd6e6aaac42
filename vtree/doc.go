// Package vtree contains the Merkle tree engine:
// root construction, single-block inclusion proofs,
// and compact multiproofs covering many blocks at once.
//
// Two tree-shape policies share one combination primitive.
// The padded policy (roots and single proofs) pads the leaf level
// with the digest of an empty block until the count is a power of two,
// so every leaf sits at the same depth.
// The ragged policy (multiproofs) never pads:
// a level with an odd node count carries its trailing node
// up to the next level unpaired and unmodified.
// The asymmetry is deliberate; the two proof types
// make different size and shape guarantees.
//
// All operations are pure, synchronous computations over
// caller-supplied blocks. Nothing here holds shared state,
// so any number of calls may run concurrently.
package vtree
