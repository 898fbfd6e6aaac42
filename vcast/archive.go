package vcast

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
	"github.com/verity-engine/verity/vtree"
)

// Archive is an immutable set of committed blocks that a [Holder] serves.
// The root and every proof derive from the same scheme,
// so any client holding the root can verify any block the archive emits.
type Archive struct {
	scheme vtree.Scheme

	blocks [][]byte

	// blocks extended with empty blocks to a power-of-two count.
	// A power-of-two leaf set has no odd carries,
	// so the compact multiproof tree over padded coincides with
	// the padded single-proof tree, and one root serves both proof types.
	padded [][]byte

	root []byte

	numData, numParity int
	dataSize           int
}

// NewArchive commits the given blocks directly,
// without erasure coding.
// The blocks must not be modified after this call.
func NewArchive(blocks [][]byte, scheme vtree.Scheme) *Archive {
	return &Archive{
		scheme: scheme,

		blocks: blocks,
		padded: padBlocks(blocks),
		root:   scheme.BuildRoot(blocks),

		numData: len(blocks),
	}
}

// padBlocks extends blocks with empty blocks
// until the count is a power of two.
func padBlocks(blocks [][]byte) [][]byte {
	if len(blocks) == 0 {
		return nil
	}

	n := 1
	for n < len(blocks) {
		n <<= 1
	}

	padded := make([][]byte, n)
	copy(padded, blocks)
	for i := len(blocks); i < n; i++ {
		padded[i] = []byte{}
	}
	return padded
}

// PrepareArchiveConfig is the config for [PrepareArchive].
type PrepareArchiveConfig struct {
	// Desired maximum size of each data block.
	// The final block is zero-padded to this size by the erasure coder.
	MaxChunkSize int

	// ParityRatio indicates the desired ratio of
	// parity blocks to data blocks.
	// For example, ParityRatio=0.25 means there will be
	// one parity block for every four data blocks.
	// The parity count is rounded down
	// if the ratio does not result in a whole number.
	ParityRatio float32

	// How to hash blocks and interior nodes.
	Scheme vtree.Scheme
}

// PrepareArchive splits data into erasure-coded blocks
// and commits data and parity together under a single root.
//
// Any NumData distinct blocks suffice to reconstruct the data;
// the root covers the parity blocks too,
// so recovered blocks verify the same way as originals.
func PrepareArchive(data []byte, cfg PrepareArchiveConfig) (*Archive, error) {
	if cfg.ParityRatio < 0 {
		panic(fmt.Errorf(
			"BUG: ParityRatio must be non-negative (got %g)", cfg.ParityRatio,
		))
	}
	if cfg.MaxChunkSize <= 0 {
		panic(fmt.Errorf(
			"BUG: MaxChunkSize must be positive (got %d)", cfg.MaxChunkSize,
		))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot prepare archive from empty data")
	}

	nData := len(data) / cfg.MaxChunkSize
	if len(data)%cfg.MaxChunkSize > 0 {
		nData++
	}

	nParity := int(cfg.ParityRatio * float32(nData))
	totalBlocks := nData + nParity

	if totalBlocks > (1<<16)-1 {
		return nil, fmt.Errorf(
			"data too large: resulted in %d data and %d parity blocks, but limit is %d",
			nData, nParity, (1<<16)-1,
		)
	}

	blocks, err := encodeShards(data, nData, nParity, cfg.MaxChunkSize)
	if err != nil {
		return nil, err
	}

	return &Archive{
		scheme: cfg.Scheme,

		blocks: blocks,
		padded: padBlocks(blocks),
		root:   cfg.Scheme.BuildRoot(blocks),

		numData:   nData,
		numParity: nParity,
		dataSize:  len(data),
	}, nil
}

func encodeShards(data []byte, nData, nParity, chunkSize int) ([][]byte, error) {
	if nParity == 0 {
		// The reedsolomon encoder requires at least one parity shard,
		// so split by hand when parity is disabled.
		shards := make([][]byte, nData)
		for i := range shards {
			shard := make([]byte, chunkSize)
			copy(shard, data[i*chunkSize:min(len(data), (i+1)*chunkSize)])
			shards[i] = shard
		}
		return shards, nil
	}

	enc, err := reedsolomon.New(
		nData, nParity,
		reedsolomon.WithAutoGoroutines(chunkSize),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to build Reed-Solomon encoder: %w", err,
		)
	}

	shards, err := enc.Split(data)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to split data into blocks: %w", err,
		)
	}

	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf(
			"failed to erasure-code data: %w", err,
		)
	}

	return shards, nil
}

// Root returns the archive's root commitment.
// The returned slice must not be modified.
func (a *Archive) Root() []byte {
	return a.root
}

// Info returns the root and shape metadata a client needs
// before it can request blocks.
func (a *Archive) Info() RootInfo {
	return RootInfo{
		Root:      a.root,
		NumData:   a.numData,
		NumParity: a.numParity,
		DataSize:  a.dataSize,
	}
}

// NumBlocks returns the total count of data and parity blocks.
func (a *Archive) NumBlocks() int {
	return len(a.blocks)
}

// Block returns the block at index i together with its membership proof.
// The proof is derived on demand and owned by the caller;
// the block is a reference into the archive and must not be modified.
func (a *Archive) Block(i int) ([]byte, vtree.Proof, error) {
	_, proof, err := a.scheme.GenerateProof(a.blocks, i)
	if err != nil {
		return nil, nil, err
	}
	return a.blocks[i], proof, nil
}

// Multiproof returns the requested blocks, in request order,
// together with a compact joint proof of their membership.
// The proof is generated over the padded leaf set
// and therefore validates against [Archive.Root],
// the same root single-block proofs validate against.
func (a *Archive) Multiproof(indices []int) ([][]byte, vtree.CompactMultiproof, error) {
	for _, idx := range indices {
		// Padding leaves exist in the tree but are not blocks;
		// requests for them are out of range.
		if idx < 0 || idx >= len(a.blocks) {
			return nil, vtree.CompactMultiproof{}, vtree.IndexOutOfRangeError{
				Index: idx, NumBlocks: len(a.blocks),
			}
		}
	}

	_, mp, err := a.scheme.GenerateMultiproof(a.padded, indices)
	if err != nil {
		return nil, vtree.CompactMultiproof{}, err
	}

	blocks := make([][]byte, len(indices))
	for i, idx := range indices {
		blocks[i] = a.blocks[idx]
	}
	return blocks, mp, nil
}
