package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Deeathex/paxos/types"
)

// Message field numbers. Variant numbers are the MessageType value
// offset by variantBase.
const (
	fieldType          = 1
	fieldAbstractionID = 2
	fieldSystemID      = 3
	variantBase        = 4
)

// ProcessId field numbers
const (
	fieldProcHost  = 1
	fieldProcPort  = 2
	fieldProcOwner = 3
	fieldProcIndex = 4
	fieldProcRank  = 5
)

// Value field numbers
const (
	fieldValueDefined = 1
	fieldValueV       = 2
)

// EpState field numbers
const (
	fieldStateTimestamp = 1
	fieldStateValue     = 2
)

// Marshal encodes a message in the protobuf wire format.
func Marshal(m *types.Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil message")
	}
	return appendMessage(nil, m)
}

func appendMessage(b []byte, m *types.Message) ([]byte, error) {
	if m.Type != 0 {
		b = protowire.AppendTag(b, fieldType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Type))
	}
	if m.AbstractionID != "" {
		b = protowire.AppendTag(b, fieldAbstractionID, protowire.BytesType)
		b = protowire.AppendString(b, m.AbstractionID)
	}
	if m.SystemID != "" {
		b = protowire.AppendTag(b, fieldSystemID, protowire.BytesType)
		b = protowire.AppendString(b, m.SystemID)
	}

	variant, sub, err := marshalVariant(m)
	if err != nil {
		return nil, err
	}
	if variant != 0 {
		b = protowire.AppendTag(b, variant, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	return b, nil
}

// marshalVariant encodes whichever variant is set and returns its field
// number, or 0 when the message carries no payload at all.
func marshalVariant(m *types.Message) (protowire.Number, []byte, error) {
	num := protowire.Number(variantBase + int32(m.Type))
	switch m.Type {
	case types.MessageTypeNetworkMessage:
		if m.NetworkMessage == nil {
			return 0, nil, nil
		}
		sub, err := marshalNetworkMessage(m.NetworkMessage)
		return num, sub, err
	case types.MessageTypeAppRegistration:
		if m.AppRegistration == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.AppRegistration.Owner != "" {
			b = protowire.AppendTag(b, 1, protowire.BytesType)
			b = protowire.AppendString(b, m.AppRegistration.Owner)
		}
		if m.AppRegistration.Index != 0 {
			b = protowire.AppendTag(b, 2, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(m.AppRegistration.Index))
		}
		return num, b, nil
	case types.MessageTypeAppPropose:
		if m.AppPropose == nil {
			return 0, nil, nil
		}
		var b []byte
		for _, p := range m.AppPropose.Processes {
			b = protowire.AppendTag(b, 1, protowire.BytesType)
			b = protowire.AppendBytes(b, appendProcess(nil, p))
		}
		b = appendValueField(b, 2, m.AppPropose.Value)
		return num, b, nil
	case types.MessageTypeAppDecide:
		if m.AppDecide == nil {
			return 0, nil, nil
		}
		return num, appendValueField(nil, 1, m.AppDecide.Value), nil
	case types.MessageTypeUcPropose:
		if m.UcPropose == nil {
			return 0, nil, nil
		}
		return num, appendValueField(nil, 1, m.UcPropose.Value), nil
	case types.MessageTypeUcDecide:
		if m.UcDecide == nil {
			return 0, nil, nil
		}
		return num, appendValueField(nil, 1, m.UcDecide.Value), nil
	case types.MessageTypeEcNewEpoch:
		if m.EcNewEpoch == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.EcNewEpoch.Timestamp != 0 {
			b = protowire.AppendTag(b, 1, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(m.EcNewEpoch.Timestamp))
		}
		return num, b, nil
	case types.MessageTypeEcNack:
		if m.EcNack == nil {
			return 0, nil, nil
		}
		return num, nil, nil
	case types.MessageTypeEcStartEpoch:
		if m.EcStartEpoch == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.EcStartEpoch.NewTimestamp != 0 {
			b = protowire.AppendTag(b, 1, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(m.EcStartEpoch.NewTimestamp))
		}
		if m.EcStartEpoch.NewLeader != nil {
			b = protowire.AppendTag(b, 2, protowire.BytesType)
			b = protowire.AppendBytes(b, appendProcess(nil, m.EcStartEpoch.NewLeader))
		}
		return num, b, nil
	case types.MessageTypeEpPropose:
		if m.EpPropose == nil {
			return 0, nil, nil
		}
		return num, appendValueField(nil, 1, m.EpPropose.Value), nil
	case types.MessageTypeEpRead:
		if m.EpRead == nil {
			return 0, nil, nil
		}
		return num, nil, nil
	case types.MessageTypeEpState:
		if m.EpState == nil {
			return 0, nil, nil
		}
		return num, appendEpState(nil, m.EpState), nil
	case types.MessageTypeEpWrite:
		if m.EpWrite == nil {
			return 0, nil, nil
		}
		return num, appendValueField(nil, 1, m.EpWrite.Value), nil
	case types.MessageTypeEpAccept:
		if m.EpAccept == nil {
			return 0, nil, nil
		}
		return num, nil, nil
	case types.MessageTypeEpDecided:
		if m.EpDecided == nil {
			return 0, nil, nil
		}
		return num, appendValueField(nil, 1, m.EpDecided.Value), nil
	case types.MessageTypeEpDecide:
		if m.EpDecide == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.EpDecide.Ets != 0 {
			b = protowire.AppendTag(b, 1, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(m.EpDecide.Ets))
		}
		b = appendValueField(b, 2, m.EpDecide.Value)
		return num, b, nil
	case types.MessageTypeEpAbort:
		if m.EpAbort == nil {
			return 0, nil, nil
		}
		return num, nil, nil
	case types.MessageTypeEpAborted:
		if m.EpAborted == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.EpAborted.Ets != 0 {
			b = protowire.AppendTag(b, 1, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(m.EpAborted.Ets))
		}
		if m.EpAborted.ValueTimestamp != 0 {
			b = protowire.AppendTag(b, 2, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(m.EpAborted.ValueTimestamp))
		}
		b = appendValueField(b, 3, m.EpAborted.Value)
		return num, b, nil
	case types.MessageTypeBebBroadcast:
		if m.BebBroadcast == nil {
			return 0, nil, nil
		}
		b, err := appendMessageField(nil, 1, m.BebBroadcast.Message)
		return num, b, err
	case types.MessageTypeBebDeliver:
		if m.BebDeliver == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.BebDeliver.Sender != nil {
			b = protowire.AppendTag(b, 1, protowire.BytesType)
			b = protowire.AppendBytes(b, appendProcess(nil, m.BebDeliver.Sender))
		}
		b, err := appendMessageField(b, 2, m.BebDeliver.Message)
		return num, b, err
	case types.MessageTypePlSend:
		if m.PlSend == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.PlSend.Destination != nil {
			b = protowire.AppendTag(b, 1, protowire.BytesType)
			b = protowire.AppendBytes(b, appendProcess(nil, m.PlSend.Destination))
		}
		b, err := appendMessageField(b, 2, m.PlSend.Message)
		return num, b, err
	case types.MessageTypePlDeliver:
		if m.PlDeliver == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.PlDeliver.Sender != nil {
			b = protowire.AppendTag(b, 1, protowire.BytesType)
			b = protowire.AppendBytes(b, appendProcess(nil, m.PlDeliver.Sender))
		}
		b, err := appendMessageField(b, 2, m.PlDeliver.Message)
		return num, b, err
	case types.MessageTypeEldTrust:
		if m.EldTrust == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.EldTrust.Process != nil {
			b = protowire.AppendTag(b, 1, protowire.BytesType)
			b = protowire.AppendBytes(b, appendProcess(nil, m.EldTrust.Process))
		}
		return num, b, nil
	case types.MessageTypeEpfdTimeout:
		if m.EpfdTimeout == nil {
			return 0, nil, nil
		}
		return num, nil, nil
	case types.MessageTypeEpfdHeartbeatRequest:
		if m.EpfdHeartbeatRequest == nil {
			return 0, nil, nil
		}
		return num, nil, nil
	case types.MessageTypeEpfdHeartbeatReply:
		if m.EpfdHeartbeatReply == nil {
			return 0, nil, nil
		}
		return num, nil, nil
	case types.MessageTypeEpfdSuspect:
		if m.EpfdSuspect == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.EpfdSuspect.Process != nil {
			b = protowire.AppendTag(b, 1, protowire.BytesType)
			b = protowire.AppendBytes(b, appendProcess(nil, m.EpfdSuspect.Process))
		}
		return num, b, nil
	case types.MessageTypeEpfdRestore:
		if m.EpfdRestore == nil {
			return 0, nil, nil
		}
		var b []byte
		if m.EpfdRestore.Process != nil {
			b = protowire.AppendTag(b, 1, protowire.BytesType)
			b = protowire.AppendBytes(b, appendProcess(nil, m.EpfdRestore.Process))
		}
		return num, b, nil
	default:
		return 0, nil, fmt.Errorf("unknown message type %d", m.Type)
	}
}

func marshalNetworkMessage(nm *types.NetworkMessage) ([]byte, error) {
	b, err := appendMessageField(nil, 1, nm.Message)
	if err != nil {
		return nil, err
	}
	if nm.SenderHost != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, nm.SenderHost)
	}
	if nm.SenderListeningPort != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(nm.SenderListeningPort))
	}
	return b, nil
}

func appendMessageField(b []byte, num protowire.Number, m *types.Message) ([]byte, error) {
	if m == nil {
		return b, nil
	}
	sub, err := appendMessage(nil, m)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub), nil
}

func appendProcess(b []byte, p *types.ProcessId) []byte {
	if p.Host != "" {
		b = protowire.AppendTag(b, fieldProcHost, protowire.BytesType)
		b = protowire.AppendString(b, p.Host)
	}
	if p.Port != 0 {
		b = protowire.AppendTag(b, fieldProcPort, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Port))
	}
	if p.Owner != "" {
		b = protowire.AppendTag(b, fieldProcOwner, protowire.BytesType)
		b = protowire.AppendString(b, p.Owner)
	}
	if p.Index != 0 {
		b = protowire.AppendTag(b, fieldProcIndex, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Index))
	}
	if p.Rank != 0 {
		b = protowire.AppendTag(b, fieldProcRank, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Rank))
	}
	return b
}

func appendValue(b []byte, v *types.Value) []byte {
	if v.Defined {
		b = protowire.AppendTag(b, fieldValueDefined, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if v.V != 0 {
		b = protowire.AppendTag(b, fieldValueV, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.V))
	}
	return b
}

func appendValueField(b []byte, num protowire.Number, v *types.Value) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, appendValue(nil, v))
}

func appendEpState(b []byte, s *types.EpState) []byte {
	if s.ValueTimestamp != 0 {
		b = protowire.AppendTag(b, fieldStateTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(s.ValueTimestamp))
	}
	return appendValueField(b, fieldStateValue, s.Value)
}
