// Package wire implements the codec for the node's external interfaces:
// the protobuf wire format for Message and the 4-byte big-endian length
// framing used on every TCP connection.
//
// # Encoding
//
// Messages are encoded with the protobuf wire format via
// google.golang.org/protobuf/encoding/protowire. The schema is fixed by
// hand rather than generated; field numbers are stable and documented
// here. Unknown fields and unknown message types are skipped on decode,
// so peers running a superset of the schema interoperate.
//
//	Message:
//	  1  type          (varint, MessageType)
//	  2  abstractionId (string)
//	  3  systemId      (string)
//	  4..31 one variant sub-message, in MessageType order:
//	     4 networkMessage   5 appRegistration  6 appPropose   7 appDecide
//	     8 ucPropose        9 ucDecide        10 ecNewEpoch  11 ecNack
//	    12 ecStartEpoch    13 epPropose       14 epRead      15 epState
//	    16 epWrite         17 epAccept        18 epDecided   19 epDecide
//	    20 epAbort         21 epAborted       22 bebBroadcast
//	    23 bebDeliver      24 plSend          25 plDeliver   26 eldTrust
//	    27 epfdTimeout     28 epfdHeartbeatRequest
//	    29 epfdHeartbeatReply  30 epfdSuspect  31 epfdRestore
//
//	ProcessId: 1 host, 2 port, 3 owner, 4 index, 5 rank
//	Value:     1 defined, 2 v
//	EpState:   1 valueTimestamp, 2 value
//
// # Framing
//
// Every TCP payload is a 4-byte big-endian length prefix followed by one
// encoded NETWORK_MESSAGE. Envelope builds that outer message the way
// the hub expects it: a PL_SEND is unwrapped so only its inner message
// travels, and the sender's listening port rides along so the receiver
// can resolve the sender against the membership list.
package wire
