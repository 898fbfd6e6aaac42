package vcast

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/quic-go/quic-go"
	"github.com/verity-engine/verity/vtree"
)

// ClientConfig is the configuration for [NewClient].
type ClientConfig struct {
	// Conn is an established connection to a holder.
	// The Client does not own the connection;
	// the caller remains responsible for closing it.
	Conn quic.Connection

	// ProtocolID is the first byte of every request stream,
	// and must match the holder's configured value.
	ProtocolID byte

	// How to hash blocks and interior nodes during verification.
	Scheme vtree.Scheme
}

// Client fetches blocks from a holder
// and verifies every one against a trusted root before accepting it.
// Methods are safe for concurrent use.
type Client struct {
	conn       quic.Connection
	protocolID byte
	scheme     vtree.Scheme

	mu       sync.Mutex
	info     RootInfo
	trusted  bool
	received *bitset.BitSet
}

// NewClient returns a Client speaking to the holder behind cfg.Conn.
// Blocks cannot be fetched until a root is trusted,
// either via [Client.FetchRoot] followed by [Client.TrustRoot],
// or via [Client.TrustRoot] with out-of-band information.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		conn:       cfg.Conn,
		protocolID: cfg.ProtocolID,
		scheme:     cfg.Scheme,
	}
}

// FetchRoot asks the holder for its root and archive shape.
// The result is reported, not trusted:
// callers who cannot confirm the root out of band
// must understand that trusting it reduces verification
// to consistency with whatever the holder claimed.
func (c *Client) FetchRoot(ctx context.Context) (RootInfo, error) {
	s, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return RootInfo{}, fmt.Errorf("failed to open stream: %w", err)
	}
	defer s.CancelRead(quic.StreamErrorCode(streamErrInternal))

	if err := writeRootRequest(s, c.protocolID); err != nil {
		return RootInfo{}, fmt.Errorf("failed to write root request: %w", err)
	}
	if err := s.Close(); err != nil {
		return RootInfo{}, fmt.Errorf("failed to finish root request: %w", err)
	}

	info, err := readRootResponse(s, c.scheme.HashSize)
	if err != nil {
		return RootInfo{}, err
	}
	return info, nil
}

// TrustRoot fixes the root all subsequent fetches verify against.
// Any previously recorded receipt state is discarded.
func (c *Client) TrustRoot(info RootInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.info = info
	c.trusted = true
	c.received = bitset.New(uint(info.NumBlocks()))
}

// trustedInfo returns the trusted root info,
// or an error if no root has been trusted yet.
func (c *Client) trustedInfo() (RootInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.trusted {
		return RootInfo{}, errors.New("no root trusted yet: call TrustRoot first")
	}
	return c.info, nil
}

func (c *Client) markReceived(indices []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, idx := range indices {
		c.received.Set(uint(idx))
	}
}

// HasBlock reports whether block i has been fetched and verified.
func (c *Client) HasBlock(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.received != nil && c.received.Test(uint(i))
}

// ReceivedCount returns how many distinct blocks
// have been fetched and verified so far.
func (c *Client) ReceivedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.received == nil {
		return 0
	}
	return int(c.received.Count())
}

// FetchBlock retrieves block i and its membership proof,
// returning the block only if the proof validates
// against the trusted root.
// A failed validation is reported as [ProofRejectedError].
func (c *Client) FetchBlock(ctx context.Context, i int) ([]byte, error) {
	info, err := c.trustedInfo()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= info.NumBlocks() {
		return nil, vtree.IndexOutOfRangeError{Index: i, NumBlocks: info.NumBlocks()}
	}

	s, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	defer s.CancelRead(quic.StreamErrorCode(streamErrInternal))

	if err := writeBlockRequest(s, c.protocolID, uint16(i)); err != nil {
		return nil, fmt.Errorf("failed to write block request: %w", err)
	}
	if err := s.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish block request: %w", err)
	}

	block, proof, err := readBlockResponse(s, c.scheme.HashSize)
	if err != nil {
		return nil, err
	}

	if !c.scheme.ValidateProof(info.Root, block, proof) {
		return nil, ProofRejectedError{Indices: []int{i}}
	}

	c.markReceived([]int{i})
	return block, nil
}

// FetchBlocks retrieves the given blocks under one compact joint proof,
// returning them in request order only if the proof validates
// against the trusted root.
// A failed validation is reported as [ProofRejectedError].
func (c *Client) FetchBlocks(ctx context.Context, indices []int) ([][]byte, error) {
	info, err := c.trustedInfo()
	if err != nil {
		return nil, err
	}
	if len(indices) == 0 {
		return nil, nil
	}
	seen := bitset.New(uint(info.NumBlocks()))
	for _, idx := range indices {
		if idx < 0 || idx >= info.NumBlocks() {
			return nil, vtree.IndexOutOfRangeError{Index: idx, NumBlocks: info.NumBlocks()}
		}
		if seen.Test(uint(idx)) {
			return nil, vtree.DuplicateIndexError{Index: idx}
		}
		seen.Set(uint(idx))
	}

	s, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	defer s.CancelRead(quic.StreamErrorCode(streamErrInternal))

	wireIndices := make([]uint16, len(indices))
	for i, idx := range indices {
		wireIndices[i] = uint16(idx)
	}
	if err := writeMultiproofRequest(s, c.protocolID, wireIndices); err != nil {
		return nil, fmt.Errorf("failed to write multiproof request: %w", err)
	}
	if err := s.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multiproof request: %w", err)
	}

	blocks, mp, err := readMultiproofResponse(s, c.scheme.HashSize)
	if err != nil {
		return nil, err
	}

	// The holder does not get to choose which indices the proof covers.
	mp.LeafIndices = slices.Clone(indices)

	if !c.scheme.ValidateMultiproof(info.Root, blocks, mp) {
		return nil, ProofRejectedError{Indices: slices.Clone(indices)}
	}

	c.markReceived(indices)
	return blocks, nil
}
