package vtree

// raggedNode is one node of one level of the ragged tree,
// tagged with whether the verifier can derive its digest.
//
// During generation every node carries its true digest,
// known or not; during validation an unknown node's hash is nil
// until a fill-in digest resolves it.
type raggedNode struct {
	known bool
	hash  []byte
}

// fillIns is the single source of sibling digests shared by
// multiproof generation and validation.
// The generator records each digest the verifier will be missing;
// the verifier replays them in the identical order.
// Keeping both paths on one device is what guarantees
// the emission order and the consumption order agree.
type fillIns struct {
	recording bool
	hashes    [][]byte
}

// resolve yields the digest for an unknown node that is about to be
// combined with a known sibling. During recording, tracked is the
// node's true digest and is appended to the output list.
// During replay the next fill-in digest is consumed instead.
//
// Reports false when replaying with the list exhausted.
func (f *fillIns) resolve(tracked []byte) ([]byte, bool) {
	if f.recording {
		f.hashes = append(f.hashes, tracked)
		return tracked, true
	}

	if len(f.hashes) == 0 {
		return nil, false
	}
	h := f.hashes[0]
	f.hashes = f.hashes[1:]
	return h, true
}

// climbRagged folds one level of the ragged tree into its parent level.
//
// Pairs fold left to right. A pair with both sides known folds silently.
// A pair with exactly one side known resolves the unknown side through f
// and produces a known parent. A pair with neither side known produces
// an unknown parent (its digest tracked during generation, absent during
// validation, to be resolved later if it ever meets a known sibling).
// An odd level's trailing node rises unpaired and unmodified.
//
// Reports false if f runs out of fill-in digests.
func (s Scheme) climbRagged(level []raggedNode, f *fillIns) ([]raggedNode, bool) {
	next := make([]raggedNode, 0, (len(level)+1)/2)

	for i := 0; i+1 < len(level); i += 2 {
		left, right := level[i], level[i+1]

		switch {
		case left.known && right.known:
			next = append(next, raggedNode{
				known: true,
				hash:  s.node(left.hash, right.hash),
			})

		case left.known:
			rh, ok := f.resolve(right.hash)
			if !ok {
				return nil, false
			}
			next = append(next, raggedNode{
				known: true,
				hash:  s.node(left.hash, rh),
			})

		case right.known:
			lh, ok := f.resolve(left.hash)
			if !ok {
				return nil, false
			}
			next = append(next, raggedNode{
				known: true,
				hash:  s.node(lh, right.hash),
			})

		default:
			var h []byte
			if left.hash != nil && right.hash != nil {
				h = s.node(left.hash, right.hash)
			}
			next = append(next, raggedNode{hash: h})
		}
	}

	if len(level)&1 == 1 {
		next = append(next, level[len(level)-1])
	}

	return next, true
}
