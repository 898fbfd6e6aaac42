package vcast

import "fmt"

// ProofRejectedError indicates that a holder returned blocks
// whose membership proof did not validate against the client's trusted root.
// The blocks must be discarded.
type ProofRejectedError struct {
	// The block indices that were requested.
	// For a single-block fetch this has one entry.
	Indices []int
}

func (e ProofRejectedError) Error() string {
	return fmt.Sprintf(
		"proof for blocks %v was rejected against the trusted root", e.Indices,
	)
}

// RemoteError is an error message a holder sent in place of a response.
type RemoteError struct {
	Msg string
}

func (e RemoteError) Error() string {
	return "remote: " + e.Msg
}
