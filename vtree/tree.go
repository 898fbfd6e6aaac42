package vtree

import (
	"fmt"
	"math/bits"

	"github.com/verity-engine/verity/vmerkle"
)

// Scheme binds a [vmerkle.Hasher] to the tree engine.
// The zero value is not usable; both fields must be set.
//
// A Scheme holds no state and is safe to copy and to use concurrently.
type Scheme struct {
	Hasher vmerkle.Hasher

	// The size, in bytes, of digests produced by Hasher.
	HashSize int
}

func (s Scheme) check() {
	if s.Hasher == nil {
		panic(fmt.Errorf("BUG: Scheme.Hasher must not be nil"))
	}
	if s.HashSize <= 0 {
		panic(fmt.Errorf("BUG: Scheme.HashSize must be positive (got %d)", s.HashSize))
	}
}

// leaf returns a freshly allocated leaf digest of in.
func (s Scheme) leaf(in []byte) []byte {
	d := make([]byte, s.HashSize)
	s.Hasher.Leaf(in, d[:0])
	return d
}

// node returns a freshly allocated combination of two child digests.
func (s Scheme) node(left, right []byte) []byte {
	d := make([]byte, s.HashSize)
	s.Hasher.Node(left, right, d[:0])
	return d
}

// BuildRoot computes the root digest of the padded tree over blocks.
//
// The leaf level is the blocks' digests in order,
// padded on the right with the digest of an empty block
// until the count is a power of two.
// An empty block sequence yields the digest of a single empty block.
func (s Scheme) BuildRoot(blocks [][]byte) []byte {
	s.check()

	level := s.paddedLeaves(blocks)
	for len(level) > 1 {
		level = s.foldPairs(level)
	}
	return level[0]
}

// paddedLeaves digests every block and pads the result
// to the next power of two with the empty-block digest.
func (s Scheme) paddedLeaves(blocks [][]byte) [][]byte {
	n := nextPowerOfTwo(len(blocks))

	level := make([][]byte, n)
	for i, b := range blocks {
		level[i] = s.leaf(b)
	}

	if len(blocks) < n {
		// Padding digests are never written to,
		// so one allocation can fill every padding slot.
		pad := s.leaf(nil)
		for i := len(blocks); i < n; i++ {
			level[i] = pad
		}
	}

	return level
}

// foldPairs combines an even-length level into its parent level.
func (s Scheme) foldPairs(level [][]byte) [][]byte {
	if len(level)&1 != 0 {
		panic(fmt.Errorf(
			"BUG: cannot fold level of odd width %d", len(level),
		))
	}

	next := make([][]byte, len(level)/2)
	for i := range next {
		next[i] = s.node(level[2*i], level[2*i+1])
	}
	return next
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
