package vtree_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/verity-engine/verity/internal/vtest"
	"github.com/verity-engine/verity/vtree"
)

func TestGenerateMultiproof_simplified_8_blocks(t *testing.T) {
	t.Parallel()

	blocks := blocksOf("Here's", "an", "eight", "word", "sentence,", "special", "for", "you.")

	root, mp, err := fnvScheme.GenerateMultiproof(blocks, []int{0, 1, 6})
	require.NoError(t, err)

	/* Known/Unknown propagation; X marks requested leaves:

	                 O
	              /     \
	           O           O
	         /   \       /   \
	        O    H_1   H_2    O
	       / \   / \   / \   / \
	      X  X  .  .  .  .  X  H_0

	H_0 is leaf 7, H_1 covers leaves 2-3, H_2 covers leaves 4-5.
	*/

	expH0 := fnv32Hash("you.")
	expH1 := fnv32Hash(string(fnv32Hash("eight")) + string(fnv32Hash("word")))
	expH2 := fnv32Hash(string(fnv32Hash("sentence,")) + string(fnv32Hash("special")))

	require.Equal(t, vtree.CompactMultiproof{
		LeafIndices: []int{0, 1, 6},
		Hashes:      [][]byte{expH0, expH1, expH2},
		NLeaves:     8,
	}, mp)

	// Eight leaves means the ragged tree and the padded tree agree.
	require.Equal(t, fnvScheme.BuildRoot(blocks), root)

	claimed := blocksOf("Here's", "an", "for")
	require.True(t, fnvScheme.ValidateMultiproof(root, claimed, mp))
}

func TestGenerateMultiproof_preservesRequestOrder(t *testing.T) {
	t.Parallel()

	blocks := vtest.RandomBlocksForTest(t, 8, 16)

	root, mp, err := shaScheme.GenerateMultiproof(blocks, []int{6, 0, 1})
	require.NoError(t, err)
	require.Equal(t, []int{6, 0, 1}, mp.LeafIndices)

	// Claimed blocks are matched to indices by list position.
	claimed := [][]byte{blocks[6], blocks[0], blocks[1]}
	require.True(t, shaScheme.ValidateMultiproof(root, claimed, mp))

	// The same blocks in a different order must fail.
	misordered := [][]byte{blocks[0], blocks[1], blocks[6]}
	require.False(t, shaScheme.ValidateMultiproof(root, misordered, mp))
}

func TestMultiproof_roundtrip_raggedShapes(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 5, 6, 7, 9, 11, 12, 16, 21} {
		t.Run(fmt.Sprintf("nBlocks = %d", n), func(t *testing.T) {
			t.Parallel()

			blocks := vtest.RandomBlocksForTest(t, n, 24)

			var indexSets [][]int
			indexSets = append(indexSets, []int{0}, []int{n - 1})
			if n > 2 {
				evens := make([]int, 0, (n+1)/2)
				for i := 0; i < n; i += 2 {
					evens = append(evens, i)
				}
				indexSets = append(indexSets, evens, []int{n - 1, 0})
			}
			all := make([]int, n)
			for i := range all {
				all[i] = i
			}
			indexSets = append(indexSets, all)

			for _, indices := range indexSets {
				root, mp, err := shaScheme.GenerateMultiproof(blocks, indices)
				require.NoError(t, err, "indices %v", indices)

				claimed := make([][]byte, len(indices))
				for i, idx := range indices {
					claimed[i] = blocks[idx]
				}

				require.True(t, shaScheme.ValidateMultiproof(root, claimed, mp),
					"indices %v must validate", indices)
			}
		})
	}
}

func TestMultiproof_oddCarry_7_blocks(t *testing.T) {
	t.Parallel()

	blocks := vtest.RandomBlocksForTest(t, 7, 16)

	/* Ragged propagation for indices [0,1,6]:

	leaf level (7 nodes): X X . . . . X   (leaf 6 is carried up unpaired)
	level 2 (4 nodes):    K U U X         (emits node(2,3) then node(4,5))
	level 3 (2 nodes):    K K
	*/

	root, mp, err := shaScheme.GenerateMultiproof(blocks, []int{0, 1, 6})
	require.NoError(t, err)
	require.Len(t, mp.Hashes, 2)
	require.Equal(t, 7, mp.NLeaves)

	claimed := [][]byte{blocks[0], blocks[1], blocks[6]}
	require.True(t, shaScheme.ValidateMultiproof(root, claimed, mp))

	// The same indices over an 8-block collection consume
	// a different fill-in layout, so the shape must not be confusable.
	tampered := mp
	tampered.NLeaves = 8
	require.False(t, shaScheme.ValidateMultiproof(root, claimed, tampered))
}

func TestGenerateMultiproof_errors(t *testing.T) {
	t.Parallel()

	blocks := vtest.RandomBlocksForTest(t, 8, 16)

	t.Run("index out of range", func(t *testing.T) {
		t.Parallel()

		for _, indices := range [][]int{{8}, {0, 8}, {-1}, {3, 100}} {
			_, _, err := shaScheme.GenerateMultiproof(blocks, indices)

			var oor vtree.IndexOutOfRangeError
			require.ErrorAs(t, err, &oor, "indices %v", indices)
		}
	})

	t.Run("duplicate index", func(t *testing.T) {
		t.Parallel()

		_, _, err := shaScheme.GenerateMultiproof(blocks, []int{0, 4, 5, 0})

		var dup vtree.DuplicateIndexError
		require.ErrorAs(t, err, &dup)
		require.Equal(t, 0, dup.Index)
	})
}

func TestValidateMultiproof_rejectsDuplicateIndices(t *testing.T) {
	t.Parallel()

	// Blocks 0 and 5 hold the same bytes,
	// so a forged proof could try to claim leaf 0 twice.
	blocks := blocksOf("same", "b", "c", "d", "e", "same", "g", "h")

	root, mp, err := shaScheme.GenerateMultiproof(blocks, []int{0, 4, 5, 6})
	require.NoError(t, err)

	claimed := [][]byte{blocks[0], blocks[4], blocks[5], blocks[6]}
	require.True(t, shaScheme.ValidateMultiproof(root, claimed, mp))

	forged := mp
	forged.LeafIndices = []int{0, 4, 0, 6}
	require.False(t, shaScheme.ValidateMultiproof(root, claimed, forged))
}

func TestValidateMultiproof_rejectsTampering(t *testing.T) {
	t.Parallel()

	blocks := vtest.RandomBlocksForTest(t, 16, 32)
	indices := []int{0, 3, 9, 14}

	root, mp, err := shaScheme.GenerateMultiproof(blocks, indices)
	require.NoError(t, err)

	claimed := make([][]byte, len(indices))
	for i, idx := range indices {
		claimed[i] = blocks[idx]
	}
	require.True(t, shaScheme.ValidateMultiproof(root, claimed, mp))

	t.Run("flipped block byte", func(t *testing.T) {
		t.Parallel()

		for i := range claimed {
			tampered := make([][]byte, len(claimed))
			copy(tampered, claimed)
			tampered[i] = append([]byte(nil), claimed[i]...)
			tampered[i][0] ^= 1

			require.False(t, shaScheme.ValidateMultiproof(root, tampered, mp))
		}
	})

	t.Run("substituted fill-in digest", func(t *testing.T) {
		t.Parallel()

		for i := range mp.Hashes {
			tampered := mp
			tampered.Hashes = make([][]byte, len(mp.Hashes))
			copy(tampered.Hashes, mp.Hashes)
			h := append([]byte(nil), mp.Hashes[i]...)
			h[0] ^= 0xFF
			tampered.Hashes[i] = h

			require.False(t, shaScheme.ValidateMultiproof(root, claimed, tampered),
				"substituting fill-in %d must invalidate the proof", i)
		}
	})

	t.Run("missing fill-in digest", func(t *testing.T) {
		t.Parallel()

		tampered := mp
		tampered.Hashes = mp.Hashes[:len(mp.Hashes)-1]
		require.False(t, shaScheme.ValidateMultiproof(root, claimed, tampered))
	})

	t.Run("extra fill-in digest", func(t *testing.T) {
		t.Parallel()

		tampered := mp
		tampered.Hashes = append(append([][]byte(nil), mp.Hashes...), mp.Hashes[0])
		require.False(t, shaScheme.ValidateMultiproof(root, claimed, tampered))
	})

	t.Run("claimed count mismatch", func(t *testing.T) {
		t.Parallel()

		require.False(t, shaScheme.ValidateMultiproof(root, claimed[:len(claimed)-1], mp))
	})
}

func TestValidateMultiproof_emptyClaim(t *testing.T) {
	t.Parallel()

	blocks := vtest.RandomBlocksForTest(t, 4, 16)

	root, mp, err := shaScheme.GenerateMultiproof(blocks, nil)
	require.NoError(t, err)
	require.Empty(t, mp.Hashes)

	// Nothing claimed means nothing is derivable; never valid.
	require.False(t, shaScheme.ValidateMultiproof(root, nil, mp))
}

func TestMultiproof_compactness(t *testing.T) {
	t.Parallel()

	const n = 64
	blocks := vtest.RandomBlocksForTest(t, n, 32)

	indices := make([]int, 16)
	for i := range indices {
		indices[i] = i * 4
	}

	_, mp, err := shaScheme.GenerateMultiproof(blocks, indices)
	require.NoError(t, err)

	// Sixteen independent single proofs over 64 blocks cost
	// 16 proofs of depth 6. The shared-sibling dedup must land
	// well under that.
	var individual int
	for _, idx := range indices {
		_, proof, err := shaScheme.GenerateProof(blocks, idx)
		require.NoError(t, err)
		individual += len(proof)
	}

	require.Less(t, len(mp.Hashes), individual/2)
}
