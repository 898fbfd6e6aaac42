package vtest

import (
	"crypto/sha256"
	"math/rand/v2"
	"testing"
)

// RandomDataForTest returns sz bytes of pseudorandom data,
// seeded from the test name so reruns of a failing test
// see the same blocks.
func RandomDataForTest(t *testing.T, sz int) []byte {
	// Hashing the test name gives exactly the 32 bytes
	// the chacha8 seed wants, regardless of the name's length.
	seed := sha256.Sum256([]byte(t.Name()))
	chacha := rand.NewChaCha8(seed)

	out := make([]byte, sz)

	if _, err := chacha.Read(out); err != nil {
		panic(err)
	}

	return out
}

// RandomBlocksForTest returns n blocks of size sz each,
// derived deterministically from the test name.
func RandomBlocksForTest(t *testing.T, n, sz int) [][]byte {
	data := RandomDataForTest(t, n*sz)

	blocks := make([][]byte, n)
	for i := range blocks {
		blocks[i] = data[i*sz : (i+1)*sz]
	}
	return blocks
}
