package vtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger that routes through t.Log,
// so that output is associated with the owning test.
func NewLogger(t *testing.T) *slog.Logger {
	return slogt.New(t)
}
