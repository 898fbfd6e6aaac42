package vtree_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/verity-engine/verity/internal/vtest"
	"github.com/verity-engine/verity/vtree"
)

func TestGenerateProof_simplified_sentence(t *testing.T) {
	t.Parallel()

	blocks := blocksOf("You", "trust", "me,", "right?")

	root, proof, err := fnvScheme.GenerateProof(blocks, 1)
	require.NoError(t, err)
	require.Equal(t, fnvScheme.BuildRoot(blocks), root)

	/* Tree structure:

	You trust me, right?
	Yt mr
	Ytmr

	Proving "trust" needs its left sibling "You",
	then the right sibling node covering "me," and "right?".
	*/

	expSibling0 := fnv32Hash("You")
	expSibling1 := fnv32Hash(string(fnv32Hash("me,")) + string(fnv32Hash("right?")))

	require.Equal(t, vtree.Proof{
		{Side: vtree.Left, Hash: expSibling0},
		{Side: vtree.Right, Hash: expSibling1},
	}, proof)

	require.True(t, fnvScheme.ValidateProof(root, []byte("trust"), proof))

	for _, wrong := range []string{"You", "me,", "right?", "trusty", ""} {
		require.False(t, fnvScheme.ValidateProof(root, []byte(wrong), proof),
			"proof for index 1 must not validate %q", wrong)
	}
}

func TestGenerateProof_roundtrip_allIndices(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 5, 7, 8, 13, 16} {
		t.Run(fmt.Sprintf("nBlocks = %d", n), func(t *testing.T) {
			t.Parallel()

			blocks := vtest.RandomBlocksForTest(t, n, 32)

			for i := range n {
				root, proof, err := shaScheme.GenerateProof(blocks, i)
				require.NoError(t, err)

				require.True(t, shaScheme.ValidateProof(root, blocks[i], proof))

				// Any other block must fail against this proof.
				other := (i + 1) % n
				if other != i {
					require.False(t, shaScheme.ValidateProof(root, blocks[other], proof))
				}
			}
		})
	}
}

func TestGenerateProof_singleBlock_emptyProof(t *testing.T) {
	t.Parallel()

	blocks := blocksOf("lonely")

	root, proof, err := shaScheme.GenerateProof(blocks, 0)
	require.NoError(t, err)
	require.Empty(t, proof)
	require.Equal(t, shaScheme.BuildRoot(blocks), root)

	require.True(t, shaScheme.ValidateProof(root, []byte("lonely"), proof))
	require.False(t, shaScheme.ValidateProof(root, []byte("crowded"), proof))
}

func TestGenerateProof_indexOutOfRange(t *testing.T) {
	t.Parallel()

	blocks := blocksOf("a", "b", "c")

	for _, idx := range []int{-1, 3, 4, 100} {
		_, _, err := shaScheme.GenerateProof(blocks, idx)

		var oor vtree.IndexOutOfRangeError
		require.ErrorAs(t, err, &oor)
		require.Equal(t, idx, oor.Index)
		require.Equal(t, 3, oor.NumBlocks)
	}

	// Index 3 addresses a padding leaf in the 4-wide padded tree,
	// but padding is not a real block.
	_, _, err := shaScheme.GenerateProof(blocks, 3)
	require.Error(t, err)
}

func TestValidateProof_rejectsTampering(t *testing.T) {
	t.Parallel()

	blocks := vtest.RandomBlocksForTest(t, 8, 64)

	root, proof, err := shaScheme.GenerateProof(blocks, 5)
	require.NoError(t, err)

	t.Run("flipped block byte", func(t *testing.T) {
		t.Parallel()

		tampered := append([]byte(nil), blocks[5]...)
		tampered[0] ^= 1
		require.False(t, shaScheme.ValidateProof(root, tampered, proof))
	})

	t.Run("swapped side tag", func(t *testing.T) {
		t.Parallel()

		for i := range proof {
			tampered := append(vtree.Proof(nil), proof...)
			if tampered[i].Side == vtree.Left {
				tampered[i].Side = vtree.Right
			} else {
				tampered[i].Side = vtree.Left
			}

			require.False(t, shaScheme.ValidateProof(root, blocks[5], tampered),
				"swapping side of entry %d must invalidate the proof", i)
		}
	})

	t.Run("substituted sibling digest", func(t *testing.T) {
		t.Parallel()

		for i := range proof {
			tampered := append(vtree.Proof(nil), proof...)
			h := append([]byte(nil), proof[i].Hash...)
			h[3] ^= 0xFF
			tampered[i].Hash = h

			require.False(t, shaScheme.ValidateProof(root, blocks[5], tampered))
		}
	})

	t.Run("truncated proof", func(t *testing.T) {
		t.Parallel()

		require.False(t, shaScheme.ValidateProof(root, blocks[5], proof[:len(proof)-1]))
	})

	t.Run("unknown side value", func(t *testing.T) {
		t.Parallel()

		tampered := append(vtree.Proof(nil), proof...)
		tampered[0].Side = vtree.Side(7)
		require.False(t, shaScheme.ValidateProof(root, blocks[5], tampered))
	})
}
