// Package vcast implements attested block transfer:
// a holder serves the blocks of a committed archive over QUIC,
// and a verifying client refuses any block
// that does not prove membership against its trusted root.
//
// The tree engine in vtree stays pure;
// vcast owns all transport concerns:
// stream framing, connection lifecycle, and request handling.
package vcast
