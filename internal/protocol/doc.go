// Package protocol owns the command frame wire contract.
//
// Ownership boundary:
// - hexcodec: textual hex fields to raw bytes
// - frame: byte-exact frame assembly
// - shared error kinds surfaced to operators
//
// Wire layout (little-endian length, everything else as configured bytes):
//
//	HEAD(2) | LENGTH(2) | BOARD(1) | CMD_ID(2) | RESERVED(2) | PAYLOAD(0..N) | TAIL(2)
//
// LENGTH is the declared length of the command definition, never the
// measured payload size.
package protocol
