package vmsha256

import (
	"crypto/sha256"
	"encoding/hex"
)

const HashSize = sha256.Size

// Hasher is a [vmerkle.Hasher] backed by SHA-256.
//
// Leaf hashes are the plain SHA-256 digest of the block bytes.
// Node hashes use the canonical combine encoding:
// each child digest is rendered as fixed-width lowercase hex,
// the left rendering is concatenated with the right rendering,
// and the concatenation is hashed.
// Order sensitivity comes from position, not from the encoding;
// fixed-width concatenation of the raw digests would be
// order-sensitive too.
// The hex step is simply the scheme's canonical encoding,
// and it is fixed: changing it changes every digest
// above the leaves.
type Hasher struct{}

func (Hasher) Leaf(in []byte, dst []byte) {
	h := sha256.New()
	_, _ = h.Write(in)
	h.Sum(dst)
}

func (Hasher) Node(left, right []byte, dst []byte) {
	enc := make([]byte, hex.EncodedLen(len(left))+hex.EncodedLen(len(right)))
	n := hex.Encode(enc, left)
	hex.Encode(enc[n:], right)

	h := sha256.New()
	_, _ = h.Write(enc)
	h.Sum(dst)
}
