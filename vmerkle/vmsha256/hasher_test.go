package vmsha256_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/verity-engine/verity/vmerkle"
	"github.com/verity-engine/verity/vmerkle/vmerkletest"
	"github.com/verity-engine/verity/vmerkle/vmsha256"
)

func TestCompliance(t *testing.T) {
	t.Parallel()

	vmerkletest.TestHasherCompliance(t, func() (vmerkle.Hasher, int) {
		return vmsha256.Hasher{}, vmsha256.HashSize
	})
}

func TestNode_hexConcatEncoding(t *testing.T) {
	t.Parallel()

	left := sha256.Sum256([]byte("left"))
	right := sha256.Sum256([]byte("right"))

	got := make([]byte, vmsha256.HashSize)
	vmsha256.Hasher{}.Node(left[:], right[:], got[:0])

	exp := sha256.Sum256([]byte(
		hex.EncodeToString(left[:]) + hex.EncodeToString(right[:]),
	))
	require.Equal(t, exp[:], got)
}
