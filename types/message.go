package types

import "fmt"

// MessageType identifies the variant carried by a Message.
type MessageType int32

const (
	MessageTypeNetworkMessage MessageType = iota
	MessageTypeAppRegistration
	MessageTypeAppPropose
	MessageTypeAppDecide
	MessageTypeUcPropose
	MessageTypeUcDecide
	MessageTypeEcNewEpoch
	MessageTypeEcNack
	MessageTypeEcStartEpoch
	MessageTypeEpPropose
	MessageTypeEpRead
	MessageTypeEpState
	MessageTypeEpWrite
	MessageTypeEpAccept
	MessageTypeEpDecided
	MessageTypeEpDecide
	MessageTypeEpAbort
	MessageTypeEpAborted
	MessageTypeBebBroadcast
	MessageTypeBebDeliver
	MessageTypePlSend
	MessageTypePlDeliver
	MessageTypeEldTrust
	MessageTypeEpfdTimeout
	MessageTypeEpfdHeartbeatRequest
	MessageTypeEpfdHeartbeatReply
	MessageTypeEpfdSuspect
	MessageTypeEpfdRestore
)

// String returns the wire name of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeNetworkMessage:
		return "NETWORK_MESSAGE"
	case MessageTypeAppRegistration:
		return "APP_REGISTRATION"
	case MessageTypeAppPropose:
		return "APP_PROPOSE"
	case MessageTypeAppDecide:
		return "APP_DECIDE"
	case MessageTypeUcPropose:
		return "UC_PROPOSE"
	case MessageTypeUcDecide:
		return "UC_DECIDE"
	case MessageTypeEcNewEpoch:
		return "EC_NEW_EPOCH"
	case MessageTypeEcNack:
		return "EC_NACK"
	case MessageTypeEcStartEpoch:
		return "EC_START_EPOCH"
	case MessageTypeEpPropose:
		return "EP_PROPOSE"
	case MessageTypeEpRead:
		return "EP_READ"
	case MessageTypeEpState:
		return "EP_STATE"
	case MessageTypeEpWrite:
		return "EP_WRITE"
	case MessageTypeEpAccept:
		return "EP_ACCEPT"
	case MessageTypeEpDecided:
		return "EP_DECIDED"
	case MessageTypeEpDecide:
		return "EP_DECIDE"
	case MessageTypeEpAbort:
		return "EP_ABORT"
	case MessageTypeEpAborted:
		return "EP_ABORTED"
	case MessageTypeBebBroadcast:
		return "BEB_BROADCAST"
	case MessageTypeBebDeliver:
		return "BEB_DELIVER"
	case MessageTypePlSend:
		return "PL_SEND"
	case MessageTypePlDeliver:
		return "PL_DELIVER"
	case MessageTypeEldTrust:
		return "ELD_TRUST"
	case MessageTypeEpfdTimeout:
		return "EPFD_TIMEOUT"
	case MessageTypeEpfdHeartbeatRequest:
		return "EPFD_HEARTBEAT_REQUEST"
	case MessageTypeEpfdHeartbeatReply:
		return "EPFD_HEARTBEAT_REPLY"
	case MessageTypeEpfdSuspect:
		return "EPFD_SUSPECT"
	case MessageTypeEpfdRestore:
		return "EPFD_RESTORE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(t))
	}
}

// Message is the tagged union exchanged between abstractions and over the
// wire. Type selects the variant; exactly one variant pointer is set.
// SystemID names the consensus instance the message belongs to.
// AbstractionID tags broadcast traffic so the receiving side can tell
// broadcast deliveries from direct ones; otherwise it is informational.
type Message struct {
	Type          MessageType
	AbstractionID string
	SystemID      string

	NetworkMessage       *NetworkMessage
	AppRegistration      *AppRegistration
	AppPropose           *AppPropose
	AppDecide            *AppDecide
	UcPropose            *UcPropose
	UcDecide             *UcDecide
	EcNewEpoch           *EcNewEpoch
	EcNack               *EcNack
	EcStartEpoch         *EcStartEpoch
	EpPropose            *EpPropose
	EpRead               *EpRead
	EpState              *EpState
	EpWrite              *EpWrite
	EpAccept             *EpAccept
	EpDecided            *EpDecided
	EpDecide             *EpDecide
	EpAbort              *EpAbort
	EpAborted            *EpAborted
	BebBroadcast         *BebBroadcast
	BebDeliver           *BebDeliver
	PlSend               *PlSend
	PlDeliver            *PlDeliver
	EldTrust             *EldTrust
	EpfdTimeout          *EpfdTimeout
	EpfdHeartbeatRequest *EpfdHeartbeatRequest
	EpfdHeartbeatReply   *EpfdHeartbeatReply
	EpfdSuspect          *EpfdSuspect
	EpfdRestore          *EpfdRestore
}

// NetworkMessage is the outer wire envelope. The receiver resolves the
// sender to a ProcessId through the membership list using
// SenderListeningPort; SenderHost is informational.
type NetworkMessage struct {
	Message             *Message
	SenderHost          string
	SenderListeningPort int32
}

// AppRegistration announces a node to the hub at startup.
type AppRegistration struct {
	Owner string
	Index int32
}

// AppPropose carries the membership list and the proposal value from the
// hub; it starts a consensus instance.
type AppPropose struct {
	Processes []*ProcessId
	Value     *Value
}

// AppDecide reports a decided value back to the hub.
type AppDecide struct {
	Value *Value
}

// UcPropose submits a value to uniform consensus.
type UcPropose struct {
	Value *Value
}

// UcDecide is the final, single decision of a consensus instance.
type UcDecide struct {
	Value *Value
}

// EcNewEpoch is broadcast by a process that trusts itself as leader to
// start the epoch with the given timestamp.
type EcNewEpoch struct {
	Timestamp int32
}

// EcNack tells an aspiring leader that its NEWEPOCH was rejected.
type EcNack struct{}

// EcStartEpoch signals uniform consensus that a newer epoch begins.
type EcStartEpoch struct {
	NewTimestamp int32
	NewLeader    *ProcessId
}

// EpPropose submits the leader's value to the current epoch.
type EpPropose struct {
	Value *Value
}

// EpRead is the leader's state-read request, first phase of an epoch.
type EpRead struct{}

// EpWrite carries the value the leader imposes in the second phase.
type EpWrite struct {
	Value *Value
}

// EpAccept acknowledges that a process stored the written value.
type EpAccept struct{}

// EpDecided announces the epoch's decision to all processes.
type EpDecided struct {
	Value *Value
}

// EpDecide reports an epoch's decision to uniform consensus.
type EpDecide struct {
	Ets   int32
	Value *Value
}

// EpAbort tells the current epoch instance to halt.
type EpAbort struct{}

// EpAborted returns a halted epoch's state to uniform consensus.
type EpAborted struct {
	Ets            int32
	ValueTimestamp int32
	Value          *Value
}

// BebBroadcast requests delivery of a message to every group member.
type BebBroadcast struct {
	Message *Message
}

// BebDeliver hands a broadcast message to the upper layers.
type BebDeliver struct {
	Sender  *ProcessId
	Message *Message
}

// PlSend requests reliable point-to-point delivery.
type PlSend struct {
	Destination *ProcessId
	Message     *Message
}

// PlDeliver hands a point-to-point message to the upper layers.
type PlDeliver struct {
	Sender  *ProcessId
	Message *Message
}

// EldTrust announces the currently trusted leader.
type EldTrust struct {
	Process *ProcessId
}

// EpfdTimeout is the marker the failure-detector timer enqueues; the
// dispatcher thread performs the actual timeout step.
type EpfdTimeout struct{}

// EpfdHeartbeatRequest asks a peer to prove liveness.
type EpfdHeartbeatRequest struct{}

// EpfdHeartbeatReply answers a heartbeat request.
type EpfdHeartbeatReply struct{}

// EpfdSuspect reports that a process is suspected to have crashed.
type EpfdSuspect struct {
	Process *ProcessId
}

// EpfdRestore retracts a previous suspicion.
type EpfdRestore struct {
	Process *ProcessId
}
