// Package types defines the data model shared by every layer of the
// consensus stack: process identities, proposal values, epoch state, and
// the Message tagged union that all abstractions exchange.
//
// # Process Identity
//
// ProcessId names one participant: host and port for delivery, rank for
// leader election, owner/index for hub registration. Two ProcessIds are
// the same participant iff their ports are equal; host and rank are not
// consulted. Membership helpers (Contains, Remove, Difference) and the
// rank selectors all follow that convention.
//
// # Values
//
// Value is the unit of agreement. The zero Value is undefined and acts
// as the bottom element: a leader only adopts a value read from a quorum
// when it is defined, but an undefined value can still be written and
// decided.
//
// # Messages
//
// Message is a closed tagged union. Type names the variant and exactly
// one variant pointer is set. Every message optionally carries the
// system-id of the consensus instance it belongs to and an
// abstraction-id tag; dispatch is by Type, with the tag telling the
// broadcast layer its own deliveries apart from direct ones.
package types
