package vcast

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/verity-engine/verity/vtree"
)

// DefaultALPN is the TLS next-protocol value
// used when the application does not choose its own.
const DefaultALPN = "verity/1"

// Request types, the second byte on a request stream
// (the first byte is the protocol ID).
const (
	reqRoot       byte = 0x01
	reqBlock      byte = 0x02
	reqMultiproof byte = 0x03
)

// Response status, the first byte of every response.
const (
	statusOK    byte = 0x00
	statusError byte = 0x01
)

// Stream error codes used when a request cannot be served.
const (
	streamErrProtocolMismatch = 0x10
	streamErrInvalidRequest   = 0x11
	streamErrInternal         = 0x12
)

// Bounds applied to remote-controlled lengths before allocating.
const (
	maxBlockLen       = 1 << 24
	maxProofLen       = 64
	maxRequestIndices = 1 << 12
	maxLeafCount      = 1 << 16
	maxErrorLen       = 1 << 10
)

// RootInfo is the holder's answer to a root request:
// the root commitment plus the shape of the archive behind it.
type RootInfo struct {
	Root []byte

	NumData, NumParity int

	// DataSize is the pre-split byte length of the original data,
	// or zero if the archive was committed from raw blocks.
	// Reassembly needs it to trim the final block's zero padding.
	DataSize int
}

// NumBlocks returns the total count of data and parity blocks.
func (ri RootInfo) NumBlocks() int {
	return ri.NumData + ri.NumParity
}

func writeRootRequest(w io.Writer, protocolID byte) error {
	_, err := w.Write([]byte{protocolID, reqRoot})
	return err
}

func writeBlockRequest(w io.Writer, protocolID byte, index uint16) error {
	buf := make([]byte, 4)
	buf[0] = protocolID
	buf[1] = reqBlock
	binary.BigEndian.PutUint16(buf[2:], index)
	_, err := w.Write(buf)
	return err
}

func writeMultiproofRequest(w io.Writer, protocolID byte, indices []uint16) error {
	if len(indices) > maxRequestIndices {
		return fmt.Errorf(
			"too many indices in one request: %d, limit %d",
			len(indices), maxRequestIndices,
		)
	}

	buf := make([]byte, 4+2*len(indices))
	buf[0] = protocolID
	buf[1] = reqMultiproof
	binary.BigEndian.PutUint16(buf[2:], uint16(len(indices)))
	for i, idx := range indices {
		binary.BigEndian.PutUint16(buf[4+2*i:], idx)
	}
	_, err := w.Write(buf)
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readBlockRequest(r io.Reader) (int, error) {
	idx, err := readUint16(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read block index: %w", err)
	}
	return int(idx), nil
}

func readMultiproofRequest(r io.Reader) ([]int, error) {
	count, err := readUint16(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read index count: %w", err)
	}
	if count > maxRequestIndices {
		return nil, fmt.Errorf(
			"too many indices in one request: %d, limit %d",
			count, maxRequestIndices,
		)
	}

	indices := make([]int, count)
	for i := range indices {
		idx, err := readUint16(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read index %d: %w", i, err)
		}
		indices[i] = int(idx)
	}
	return indices, nil
}

func writeRootResponse(w io.Writer, info RootInfo) error {
	buf := make([]byte, 0, 1+1+len(info.Root)+2+2+4)
	buf = append(buf, statusOK, byte(len(info.Root)))
	buf = append(buf, info.Root...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(info.NumData))
	buf = binary.BigEndian.AppendUint16(buf, uint16(info.NumParity))
	buf = binary.BigEndian.AppendUint32(buf, uint32(info.DataSize))
	_, err := w.Write(buf)
	return err
}

func readRootResponse(r io.Reader, hashSize int) (RootInfo, error) {
	if err := readStatus(r); err != nil {
		return RootInfo{}, err
	}

	var sz [1]byte
	if _, err := io.ReadFull(r, sz[:]); err != nil {
		return RootInfo{}, fmt.Errorf("failed to read root size: %w", err)
	}
	if int(sz[0]) != hashSize {
		return RootInfo{}, fmt.Errorf(
			"root size mismatch: holder sent %d, expected %d", sz[0], hashSize,
		)
	}

	root := make([]byte, hashSize)
	if _, err := io.ReadFull(r, root); err != nil {
		return RootInfo{}, fmt.Errorf("failed to read root: %w", err)
	}

	nData, err := readUint16(r)
	if err != nil {
		return RootInfo{}, fmt.Errorf("failed to read data count: %w", err)
	}
	nParity, err := readUint16(r)
	if err != nil {
		return RootInfo{}, fmt.Errorf("failed to read parity count: %w", err)
	}
	dataSize, err := readUint32(r)
	if err != nil {
		return RootInfo{}, fmt.Errorf("failed to read data size: %w", err)
	}

	return RootInfo{
		Root:      root,
		NumData:   int(nData),
		NumParity: int(nParity),
		DataSize:  int(dataSize),
	}, nil
}

func writeBlockResponse(w io.Writer, block []byte, proof vtree.Proof) error {
	size := 1 + 4 + len(block) + 1
	for _, sib := range proof {
		size += 1 + len(sib.Hash)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, statusOK)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(block)))
	buf = append(buf, block...)
	buf = append(buf, byte(len(proof)))
	for _, sib := range proof {
		buf = append(buf, byte(sib.Side))
		buf = append(buf, sib.Hash...)
	}
	_, err := w.Write(buf)
	return err
}

func readBlockResponse(r io.Reader, hashSize int) ([]byte, vtree.Proof, error) {
	if err := readStatus(r); err != nil {
		return nil, nil, err
	}

	blockLen, err := readUint32(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read block length: %w", err)
	}
	if blockLen > maxBlockLen {
		return nil, nil, fmt.Errorf(
			"block too large: %d bytes, limit %d", blockLen, maxBlockLen,
		)
	}

	block := make([]byte, blockLen)
	if _, err := io.ReadFull(r, block); err != nil {
		return nil, nil, fmt.Errorf("failed to read block: %w", err)
	}

	var pl [1]byte
	if _, err := io.ReadFull(r, pl[:]); err != nil {
		return nil, nil, fmt.Errorf("failed to read proof length: %w", err)
	}
	if int(pl[0]) > maxProofLen {
		return nil, nil, fmt.Errorf(
			"proof too long: %d entries, limit %d", pl[0], maxProofLen,
		)
	}

	proof := make(vtree.Proof, pl[0])
	for i := range proof {
		var side [1]byte
		if _, err := io.ReadFull(r, side[:]); err != nil {
			return nil, nil, fmt.Errorf("failed to read proof entry %d: %w", i, err)
		}

		hash := make([]byte, hashSize)
		if _, err := io.ReadFull(r, hash); err != nil {
			return nil, nil, fmt.Errorf("failed to read proof entry %d: %w", i, err)
		}

		proof[i] = vtree.SiblingNode{Side: vtree.Side(side[0]), Hash: hash}
	}

	return block, proof, nil
}

func writeMultiproofResponse(w io.Writer, blocks [][]byte, mp vtree.CompactMultiproof) error {
	size := 1 + 4 + 2
	for _, b := range blocks {
		size += 4 + len(b)
	}
	size += 2
	for _, h := range mp.Hashes {
		size += len(h)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, statusOK)
	// The leaf count includes padding leaves,
	// so it can exceed the uint16 block index space by one power of two.
	buf = binary.BigEndian.AppendUint32(buf, uint32(mp.NLeaves))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(blocks)))
	for _, b := range blocks {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
		buf = append(buf, b...)
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(mp.Hashes)))
	for _, h := range mp.Hashes {
		buf = append(buf, h...)
	}
	_, err := w.Write(buf)
	return err
}

// readMultiproofResponse parses blocks and the joint proof.
// The leaf indices are not on the wire;
// the caller reattaches the indices it requested,
// which is exactly what validation must check the blocks against.
func readMultiproofResponse(r io.Reader, hashSize int) ([][]byte, vtree.CompactMultiproof, error) {
	if err := readStatus(r); err != nil {
		return nil, vtree.CompactMultiproof{}, err
	}

	nLeaves, err := readUint32(r)
	if err != nil {
		return nil, vtree.CompactMultiproof{}, fmt.Errorf("failed to read leaf count: %w", err)
	}
	if nLeaves > maxLeafCount {
		return nil, vtree.CompactMultiproof{}, fmt.Errorf(
			"leaf count too large: %d, limit %d", nLeaves, maxLeafCount,
		)
	}

	count, err := readUint16(r)
	if err != nil {
		return nil, vtree.CompactMultiproof{}, fmt.Errorf("failed to read block count: %w", err)
	}
	if count > maxRequestIndices {
		return nil, vtree.CompactMultiproof{}, fmt.Errorf(
			"too many blocks in response: %d, limit %d", count, maxRequestIndices,
		)
	}

	blocks := make([][]byte, count)
	for i := range blocks {
		blockLen, err := readUint32(r)
		if err != nil {
			return nil, vtree.CompactMultiproof{}, fmt.Errorf("failed to read block %d length: %w", i, err)
		}
		if blockLen > maxBlockLen {
			return nil, vtree.CompactMultiproof{}, fmt.Errorf(
				"block %d too large: %d bytes, limit %d", i, blockLen, maxBlockLen,
			)
		}

		blocks[i] = make([]byte, blockLen)
		if _, err := io.ReadFull(r, blocks[i]); err != nil {
			return nil, vtree.CompactMultiproof{}, fmt.Errorf("failed to read block %d: %w", i, err)
		}
	}

	fillCount, err := readUint16(r)
	if err != nil {
		return nil, vtree.CompactMultiproof{}, fmt.Errorf("failed to read fill-in count: %w", err)
	}
	if int(fillCount) > int(nLeaves) {
		return nil, vtree.CompactMultiproof{}, fmt.Errorf(
			"too many fill-in hashes: %d for %d leaves", fillCount, nLeaves,
		)
	}

	hashes := make([][]byte, fillCount)
	for i := range hashes {
		hashes[i] = make([]byte, hashSize)
		if _, err := io.ReadFull(r, hashes[i]); err != nil {
			return nil, vtree.CompactMultiproof{}, fmt.Errorf("failed to read fill-in hash %d: %w", i, err)
		}
	}

	return blocks, vtree.CompactMultiproof{
		Hashes:  hashes,
		NLeaves: int(nLeaves),
	}, nil
}

func writeErrorResponse(w io.Writer, msg string) error {
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}

	buf := make([]byte, 0, 1+2+len(msg))
	buf = append(buf, statusError)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(msg)))
	buf = append(buf, msg...)
	_, err := w.Write(buf)
	return err
}

// readStatus consumes the status byte,
// decoding the remote error message when the status is not OK.
func readStatus(r io.Reader) error {
	var st [1]byte
	if _, err := io.ReadFull(r, st[:]); err != nil {
		return fmt.Errorf("failed to read response status: %w", err)
	}

	switch st[0] {
	case statusOK:
		return nil
	case statusError:
		msgLen, err := readUint16(r)
		if err != nil {
			return fmt.Errorf("failed to read remote error: %w", err)
		}
		if msgLen > maxErrorLen {
			return fmt.Errorf("remote error message too long: %d bytes", msgLen)
		}
		msg := make([]byte, msgLen)
		if _, err := io.ReadFull(r, msg); err != nil {
			return fmt.Errorf("failed to read remote error: %w", err)
		}
		return RemoteError{Msg: string(msg)}
	default:
		return fmt.Errorf("unrecognized response status 0x%x", st[0])
	}
}
