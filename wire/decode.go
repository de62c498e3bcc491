package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Deeathex/paxos/types"
)

// Unmarshal decodes a message from the protobuf wire format. Unknown
// fields are skipped; unknown variant numbers leave the message with no
// payload, which the dispatcher treats as malformed and drops.
func Unmarshal(b []byte) (*types.Message, error) {
	return unmarshalMessage(b)
}

// eachField walks the top-level fields of an encoded message body and
// hands each field's value bytes to fn. Fields fn does not recognize are
// simply skipped by it.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, val []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		if err := fn(num, typ, b[:m]); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func consumeVarint(val []byte) (uint64, error) {
	v, n := protowire.ConsumeVarint(val)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}

func consumeString(val []byte) (string, error) {
	s, n := protowire.ConsumeString(val)
	if n < 0 {
		return "", protowire.ParseError(n)
	}
	return s, nil
}

func consumeBytes(val []byte) ([]byte, error) {
	d, n := protowire.ConsumeBytes(val)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return d, nil
}

func unmarshalMessage(b []byte) (*types.Message, error) {
	m := &types.Message{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch {
		case num == fieldType:
			v, err := consumeVarint(val)
			if err != nil {
				return err
			}
			m.Type = types.MessageType(v)
		case num == fieldAbstractionID:
			s, err := consumeString(val)
			if err != nil {
				return err
			}
			m.AbstractionID = s
		case num == fieldSystemID:
			s, err := consumeString(val)
			if err != nil {
				return err
			}
			m.SystemID = s
		case num >= variantBase && int32(num) < variantBase+int32(types.MessageTypeEpfdRestore)+1:
			data, err := consumeBytes(val)
			if err != nil {
				return err
			}
			vt := types.MessageType(int32(num) - variantBase)
			if err := unmarshalVariant(m, vt, data); err != nil {
				return err
			}
			// The variant field implies the type even when field 1 was
			// omitted as a zero default (NETWORK_MESSAGE).
			m.Type = vt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func unmarshalVariant(m *types.Message, vt types.MessageType, b []byte) error {
	switch vt {
	case types.MessageTypeNetworkMessage:
		nm := &types.NetworkMessage{}
		err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
			switch num {
			case 1:
				data, err := consumeBytes(val)
				if err != nil {
					return err
				}
				inner, err := unmarshalMessage(data)
				if err != nil {
					return err
				}
				nm.Message = inner
			case 2:
				s, err := consumeString(val)
				if err != nil {
					return err
				}
				nm.SenderHost = s
			case 3:
				v, err := consumeVarint(val)
				if err != nil {
					return err
				}
				nm.SenderListeningPort = int32(v)
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.NetworkMessage = nm
	case types.MessageTypeAppRegistration:
		ar := &types.AppRegistration{}
		err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
			switch num {
			case 1:
				s, err := consumeString(val)
				if err != nil {
					return err
				}
				ar.Owner = s
			case 2:
				v, err := consumeVarint(val)
				if err != nil {
					return err
				}
				ar.Index = int32(v)
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.AppRegistration = ar
	case types.MessageTypeAppPropose:
		ap := &types.AppPropose{}
		err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
			switch num {
			case 1:
				data, err := consumeBytes(val)
				if err != nil {
					return err
				}
				p, err := unmarshalProcess(data)
				if err != nil {
					return err
				}
				ap.Processes = append(ap.Processes, p)
			case 2:
				v, err := unmarshalValueField(val)
				if err != nil {
					return err
				}
				ap.Value = v
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.AppPropose = ap
	case types.MessageTypeAppDecide:
		v, err := unmarshalSingleValue(b)
		if err != nil {
			return err
		}
		m.AppDecide = &types.AppDecide{Value: v}
	case types.MessageTypeUcPropose:
		v, err := unmarshalSingleValue(b)
		if err != nil {
			return err
		}
		m.UcPropose = &types.UcPropose{Value: v}
	case types.MessageTypeUcDecide:
		v, err := unmarshalSingleValue(b)
		if err != nil {
			return err
		}
		m.UcDecide = &types.UcDecide{Value: v}
	case types.MessageTypeEcNewEpoch:
		ne := &types.EcNewEpoch{}
		err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
			if num == 1 {
				v, err := consumeVarint(val)
				if err != nil {
					return err
				}
				ne.Timestamp = int32(v)
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.EcNewEpoch = ne
	case types.MessageTypeEcNack:
		m.EcNack = &types.EcNack{}
	case types.MessageTypeEcStartEpoch:
		se := &types.EcStartEpoch{}
		err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
			switch num {
			case 1:
				v, err := consumeVarint(val)
				if err != nil {
					return err
				}
				se.NewTimestamp = int32(v)
			case 2:
				data, err := consumeBytes(val)
				if err != nil {
					return err
				}
				p, err := unmarshalProcess(data)
				if err != nil {
					return err
				}
				se.NewLeader = p
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.EcStartEpoch = se
	case types.MessageTypeEpPropose:
		v, err := unmarshalSingleValue(b)
		if err != nil {
			return err
		}
		m.EpPropose = &types.EpPropose{Value: v}
	case types.MessageTypeEpRead:
		m.EpRead = &types.EpRead{}
	case types.MessageTypeEpState:
		st, err := unmarshalEpState(b)
		if err != nil {
			return err
		}
		m.EpState = st
	case types.MessageTypeEpWrite:
		v, err := unmarshalSingleValue(b)
		if err != nil {
			return err
		}
		m.EpWrite = &types.EpWrite{Value: v}
	case types.MessageTypeEpAccept:
		m.EpAccept = &types.EpAccept{}
	case types.MessageTypeEpDecided:
		v, err := unmarshalSingleValue(b)
		if err != nil {
			return err
		}
		m.EpDecided = &types.EpDecided{Value: v}
	case types.MessageTypeEpDecide:
		ed := &types.EpDecide{}
		err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
			switch num {
			case 1:
				v, err := consumeVarint(val)
				if err != nil {
					return err
				}
				ed.Ets = int32(v)
			case 2:
				v, err := unmarshalValueField(val)
				if err != nil {
					return err
				}
				ed.Value = v
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.EpDecide = ed
	case types.MessageTypeEpAbort:
		m.EpAbort = &types.EpAbort{}
	case types.MessageTypeEpAborted:
		ea := &types.EpAborted{}
		err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
			switch num {
			case 1:
				v, err := consumeVarint(val)
				if err != nil {
					return err
				}
				ea.Ets = int32(v)
			case 2:
				v, err := consumeVarint(val)
				if err != nil {
					return err
				}
				ea.ValueTimestamp = int32(v)
			case 3:
				v, err := unmarshalValueField(val)
				if err != nil {
					return err
				}
				ea.Value = v
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.EpAborted = ea
	case types.MessageTypeBebBroadcast:
		inner, err := unmarshalSingleMessage(b, 1)
		if err != nil {
			return err
		}
		m.BebBroadcast = &types.BebBroadcast{Message: inner}
	case types.MessageTypeBebDeliver:
		sender, inner, err := unmarshalProcessAndMessage(b)
		if err != nil {
			return err
		}
		m.BebDeliver = &types.BebDeliver{Sender: sender, Message: inner}
	case types.MessageTypePlSend:
		dest, inner, err := unmarshalProcessAndMessage(b)
		if err != nil {
			return err
		}
		m.PlSend = &types.PlSend{Destination: dest, Message: inner}
	case types.MessageTypePlDeliver:
		sender, inner, err := unmarshalProcessAndMessage(b)
		if err != nil {
			return err
		}
		m.PlDeliver = &types.PlDeliver{Sender: sender, Message: inner}
	case types.MessageTypeEldTrust:
		p, err := unmarshalSingleProcess(b)
		if err != nil {
			return err
		}
		m.EldTrust = &types.EldTrust{Process: p}
	case types.MessageTypeEpfdTimeout:
		m.EpfdTimeout = &types.EpfdTimeout{}
	case types.MessageTypeEpfdHeartbeatRequest:
		m.EpfdHeartbeatRequest = &types.EpfdHeartbeatRequest{}
	case types.MessageTypeEpfdHeartbeatReply:
		m.EpfdHeartbeatReply = &types.EpfdHeartbeatReply{}
	case types.MessageTypeEpfdSuspect:
		p, err := unmarshalSingleProcess(b)
		if err != nil {
			return err
		}
		m.EpfdSuspect = &types.EpfdSuspect{Process: p}
	case types.MessageTypeEpfdRestore:
		p, err := unmarshalSingleProcess(b)
		if err != nil {
			return err
		}
		m.EpfdRestore = &types.EpfdRestore{Process: p}
	}
	return nil
}

// unmarshalSingleValue parses a payload whose only field is a Value at
// field number 1 (UC_PROPOSE, EP_WRITE and friends).
func unmarshalSingleValue(b []byte) (*types.Value, error) {
	var out *types.Value
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num == 1 {
			v, err := unmarshalValueField(val)
			if err != nil {
				return err
			}
			out = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = types.UndefinedValue()
	}
	return out, nil
}

func unmarshalSingleProcess(b []byte) (*types.ProcessId, error) {
	var out *types.ProcessId
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num == 1 {
			data, err := consumeBytes(val)
			if err != nil {
				return err
			}
			p, err := unmarshalProcess(data)
			if err != nil {
				return err
			}
			out = p
		}
		return nil
	})
	return out, err
}

func unmarshalSingleMessage(b []byte, field protowire.Number) (*types.Message, error) {
	var out *types.Message
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num == field {
			data, err := consumeBytes(val)
			if err != nil {
				return err
			}
			inner, err := unmarshalMessage(data)
			if err != nil {
				return err
			}
			out = inner
		}
		return nil
	})
	return out, err
}

// unmarshalProcessAndMessage parses the shared shape of BEB_DELIVER,
// PL_SEND and PL_DELIVER: a ProcessId at field 1 and a nested Message at
// field 2.
func unmarshalProcessAndMessage(b []byte) (*types.ProcessId, *types.Message, error) {
	var proc *types.ProcessId
	var inner *types.Message
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			data, err := consumeBytes(val)
			if err != nil {
				return err
			}
			p, err := unmarshalProcess(data)
			if err != nil {
				return err
			}
			proc = p
		case 2:
			data, err := consumeBytes(val)
			if err != nil {
				return err
			}
			m, err := unmarshalMessage(data)
			if err != nil {
				return err
			}
			inner = m
		}
		return nil
	})
	return proc, inner, err
}

func unmarshalProcess(b []byte) (*types.ProcessId, error) {
	p := &types.ProcessId{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case fieldProcHost:
			s, err := consumeString(val)
			if err != nil {
				return err
			}
			p.Host = s
		case fieldProcPort:
			v, err := consumeVarint(val)
			if err != nil {
				return err
			}
			p.Port = int32(v)
		case fieldProcOwner:
			s, err := consumeString(val)
			if err != nil {
				return err
			}
			p.Owner = s
		case fieldProcIndex:
			v, err := consumeVarint(val)
			if err != nil {
				return err
			}
			p.Index = int32(v)
		case fieldProcRank:
			v, err := consumeVarint(val)
			if err != nil {
				return err
			}
			p.Rank = int32(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func unmarshalValueField(val []byte) (*types.Value, error) {
	data, err := consumeBytes(val)
	if err != nil {
		return nil, err
	}
	return unmarshalValue(data)
}

func unmarshalValue(b []byte) (*types.Value, error) {
	v := &types.Value{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case fieldValueDefined:
			d, err := consumeVarint(val)
			if err != nil {
				return err
			}
			v.Defined = d != 0
		case fieldValueV:
			d, err := consumeVarint(val)
			if err != nil {
				return err
			}
			v.V = int64(d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func unmarshalEpState(b []byte) (*types.EpState, error) {
	st := &types.EpState{Value: types.UndefinedValue()}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case fieldStateTimestamp:
			v, err := consumeVarint(val)
			if err != nil {
				return err
			}
			st.ValueTimestamp = int32(v)
		case fieldStateValue:
			v, err := unmarshalValueField(val)
			if err != nil {
				return err
			}
			st.Value = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
