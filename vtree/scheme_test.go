package vtree_test

import (
	"hash/fnv"

	"github.com/verity-engine/verity/vmerkle/vmsha256"
	"github.com/verity-engine/verity/vtree"
)

// All the "_simplified_" tests use the fnv32Hasher,
// whose Node is plain concatenation before hashing.
// That makes expected values easy to write by hand,
// but it does not exercise the combine encoding;
// the sha256 scheme tests cover that.

type fnv32Hasher struct{}

func (fnv32Hasher) Leaf(in []byte, dst []byte) {
	f := fnv.New32()
	_, _ = f.Write(in)
	f.Sum(dst)
}

func (fnv32Hasher) Node(left, right []byte, dst []byte) {
	f := fnv.New32()
	_, _ = f.Write(left)
	_, _ = f.Write(right)
	f.Sum(dst)
}

func fnv32Hash(s string) []byte {
	f := fnv.New32()
	_, _ = f.Write([]byte(s))
	return f.Sum(nil)
}

var fnvScheme = vtree.Scheme{Hasher: fnv32Hasher{}, HashSize: 4}

var shaScheme = vtree.Scheme{Hasher: vmsha256.Hasher{}, HashSize: vmsha256.HashSize}

func blocksOf(words ...string) [][]byte {
	blocks := make([][]byte, len(words))
	for i, w := range words {
		blocks[i] = []byte(w)
	}
	return blocks
}
