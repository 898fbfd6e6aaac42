package vtree

import "fmt"

// IndexOutOfRangeError is returned from proof generation
// when a requested index does not address a real block.
type IndexOutOfRangeError struct {
	Index     int
	NumBlocks int
}

func (e IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range for %d blocks", e.Index, e.NumBlocks)
}

// DuplicateIndexError is returned from multiproof generation
// when the same index is requested twice in one call.
type DuplicateIndexError struct {
	Index int
}

func (e DuplicateIndexError) Error() string {
	return fmt.Sprintf("index %d requested more than once", e.Index)
}
