package vcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/quic-go/quic-go"
	"github.com/verity-engine/verity/vtree"
)

// HolderConfig is the configuration for [NewHolder].
type HolderConfig struct {
	// Listener accepts incoming connections from clients.
	// The Holder does not own the listener;
	// the caller remains responsible for closing it.
	Listener *quic.Listener

	// The committed archive to serve.
	Archive *Archive

	// ProtocolID is the first byte of every request stream.
	// Streams opening with a different value are rejected.
	ProtocolID byte
}

// Holder serves a committed archive's root, blocks, and proofs
// to any client that connects, one request per bidirectional stream.
// Clients verify everything against the root,
// so the holder itself does not need to be trusted.
type Holder struct {
	log *slog.Logger

	archive    *Archive
	protocolID byte

	wg sync.WaitGroup
}

// NewHolder begins serving the configured archive
// on the configured listener.
// Serving stops when ctx is canceled.
func NewHolder(
	ctx context.Context,
	log *slog.Logger,
	cfg HolderConfig,
) *Holder {
	h := &Holder{
		log: log,

		archive:    cfg.Archive,
		protocolID: cfg.ProtocolID,
	}

	h.wg.Add(1)
	go h.acceptConnections(ctx, cfg.Listener)

	return h
}

// Wait blocks until the holder's background work has finished.
// Callers must cancel the context passed to [NewHolder]
// before or concurrently with calling Wait.
func (h *Holder) Wait() {
	h.wg.Wait()
}

func (h *Holder) acceptConnections(ctx context.Context, ln *quic.Listener) {
	defer h.wg.Done()

	for {
		qc, err := ln.Accept(ctx)
		if err != nil {
			if errors.Is(context.Cause(ctx), err) {
				h.log.Info(
					"Accept loop quitting due to context cancellation",
					"cause", context.Cause(ctx),
				)
				return
			}

			// Debug-level because this could be spammy
			// if we are getting a lot of garbage connections.
			h.log.Debug(
				"Failed to accept incoming connection",
				"err", err,
			)
			continue
		}

		h.wg.Add(1)
		go h.acceptStreams(ctx, qc)
	}
}

func (h *Holder) acceptStreams(ctx context.Context, qc quic.Connection) {
	defer h.wg.Done()

	for {
		s, err := qc.AcceptStream(ctx)
		if err != nil {
			if errors.Is(context.Cause(ctx), err) {
				h.log.Info(
					"Stream loop quitting due to context cancellation",
					"remote_addr", qc.RemoteAddr().String(),
					"cause", context.Cause(ctx),
				)
				return
			}

			h.log.Debug(
				"Stopped accepting streams",
				"remote_addr", qc.RemoteAddr().String(),
				"err", err,
			)
			return
		}

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.handleStream(qc, s)
		}()
	}
}

// handleStream serves a single request-response exchange.
// The stream carries exactly one request,
// so the write side is closed once the response is flushed.
func (h *Holder) handleStream(qc quic.Connection, s quic.Stream) {
	var hdr [2]byte
	if _, err := io.ReadFull(s, hdr[:]); err != nil {
		h.log.Debug(
			"Failed to read request header",
			"remote_addr", qc.RemoteAddr().String(),
			"err", err,
		)
		s.CancelRead(quic.StreamErrorCode(streamErrInvalidRequest))
		s.CancelWrite(quic.StreamErrorCode(streamErrInvalidRequest))
		return
	}

	if hdr[0] != h.protocolID {
		h.log.Debug(
			"Rejecting stream with wrong protocol ID",
			"remote_addr", qc.RemoteAddr().String(),
			"got", hdr[0],
			"want", h.protocolID,
		)
		s.CancelRead(quic.StreamErrorCode(streamErrProtocolMismatch))
		s.CancelWrite(quic.StreamErrorCode(streamErrProtocolMismatch))
		return
	}

	var err error
	switch hdr[1] {
	case reqRoot:
		err = h.serveRoot(s)
	case reqBlock:
		err = h.serveBlock(s)
	case reqMultiproof:
		err = h.serveMultiproof(s)
	default:
		h.log.Debug(
			"Rejecting stream with unrecognized request type",
			"remote_addr", qc.RemoteAddr().String(),
			"request_type", hdr[1],
		)
		s.CancelRead(quic.StreamErrorCode(streamErrInvalidRequest))
		s.CancelWrite(quic.StreamErrorCode(streamErrInvalidRequest))
		return
	}

	if err != nil {
		h.log.Debug(
			"Failed to serve request",
			"remote_addr", qc.RemoteAddr().String(),
			"request_type", hdr[1],
			"err", err,
		)
		s.CancelWrite(quic.StreamErrorCode(streamErrInternal))
		return
	}

	if err := s.Close(); err != nil {
		h.log.Debug(
			"Failed to close stream after serving request",
			"remote_addr", qc.RemoteAddr().String(),
			"err", err,
		)
	}
}

func (h *Holder) serveRoot(s quic.Stream) error {
	if err := writeRootResponse(s, h.archive.Info()); err != nil {
		return fmt.Errorf("failed to write root response: %w", err)
	}
	return nil
}

func (h *Holder) serveBlock(s quic.Stream) error {
	idx, err := readBlockRequest(s)
	if err != nil {
		return err
	}

	block, proof, err := h.archive.Block(idx)
	if err != nil {
		// Out of range requests get a remote error, not a dropped stream,
		// so the client can distinguish bad input from transport failure.
		if wErr := writeErrorResponse(s, err.Error()); wErr != nil {
			return fmt.Errorf("failed to write error response: %w", wErr)
		}
		return nil
	}

	if err := writeBlockResponse(s, block, proof); err != nil {
		return fmt.Errorf("failed to write block response: %w", err)
	}
	return nil
}

func (h *Holder) serveMultiproof(s quic.Stream) error {
	indices, err := readMultiproofRequest(s)
	if err != nil {
		return err
	}

	blocks, mp, err := h.archive.Multiproof(indices)
	if err != nil {
		var oobErr vtree.IndexOutOfRangeError
		var dupErr vtree.DuplicateIndexError
		if errors.As(err, &oobErr) || errors.As(err, &dupErr) {
			if wErr := writeErrorResponse(s, err.Error()); wErr != nil {
				return fmt.Errorf("failed to write error response: %w", wErr)
			}
			return nil
		}
		return err
	}

	if err := writeMultiproofResponse(s, blocks, mp); err != nil {
		return fmt.Errorf("failed to write multiproof response: %w", err)
	}
	return nil
}
