package vmerkletest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/verity-engine/verity/vmerkle"
)

type HasherFactory func() (h vmerkle.Hasher, hashSize int)

func TestHasherCompliance(t *testing.T, f HasherFactory) {
	t.Run("leaf is deterministic", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		dst01 := make([]byte, sz)
		h.Leaf([]byte("deterministic_data"), dst01[:0])

		dst02 := make([]byte, sz)
		h.Leaf([]byte("deterministic_data"), dst02[:0])

		require.Equal(t, dst01, dst02)
	})

	t.Run("node is deterministic", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		left := make([]byte, sz)
		h.Leaf([]byte("left"), left[:0])
		right := make([]byte, sz)
		h.Leaf([]byte("right"), right[:0])

		dst01 := make([]byte, sz)
		h.Node(left, right, dst01[:0])

		dst02 := make([]byte, sz)
		h.Node(left, right, dst02[:0])

		require.Equal(t, dst01, dst02)
	})

	t.Run("node respects argument order", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		a := make([]byte, sz)
		h.Leaf([]byte("a"), a[:0])
		b := make([]byte, sz)
		h.Leaf([]byte("b"), b[:0])

		ab := make([]byte, sz)
		h.Node(a, b, ab[:0])

		ba := make([]byte, sz)
		h.Node(b, a, ba[:0])

		require.NotEqual(t, ab, ba)
	})

	t.Run("node differs from leaf of same bytes", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		a := make([]byte, sz)
		h.Leaf([]byte("fixed_data"), a[:0])
		b := make([]byte, sz)
		h.Leaf([]byte("fixed_data"), b[:0])

		node := make([]byte, sz)
		h.Node(a, b, node[:0])

		require.NotEqual(t, a, node)
	})
}
