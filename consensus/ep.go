package consensus

import (
	"log"

	"github.com/Deeathex/paxos/types"
)

// EpochConsensus is one read/write epoch: an attempt by the epoch's
// designated leader to impose a value on the group. The leader reads the
// (timestamp, value) state of a quorum, adopts the highest-timestamped
// defined value it saw (keeping its own proposal otherwise), writes the
// chosen value to a quorum, and announces the decision. An aborted
// instance reports its state for carry-over and halts for good.
type EpochConsensus struct {
	system *System
	ets    int32
	leader *types.ProcessId

	state  *types.EpState
	tmpVal *types.Value

	states   map[int32]*types.EpState
	accepted int
	halted   bool
}

// NewEpochConsensus creates the instance for epoch ets with the state
// carried over from the aborted predecessor.
func NewEpochConsensus(s *System, ets int32, leader *types.ProcessId, state *types.EpState) *EpochConsensus {
	return &EpochConsensus{
		system: s,
		ets:    ets,
		leader: leader,
		state:  types.CopyEpState(state),
		tmpVal: types.UndefinedValue(),
		states: make(map[int32]*types.EpState),
	}
}

// Ets returns the epoch timestamp of this instance.
func (ep *EpochConsensus) Ets() int32 {
	return ep.ets
}

// Halted reports whether the instance has been aborted.
func (ep *EpochConsensus) Halted() bool {
	return ep.halted
}

// Handle claims the epoch-consensus message set. A halted instance
// claims nothing and changes nothing.
func (ep *EpochConsensus) Handle(m *types.Message) bool {
	if ep.halted {
		return false
	}
	switch m.Type {
	case types.MessageTypeEpPropose:
		if m.EpPropose == nil {
			return false
		}
		ep.handlePropose(m.EpPropose.Value)
		return true
	case types.MessageTypeBebDeliver:
		if m.BebDeliver == nil || m.BebDeliver.Message == nil {
			return false
		}
		inner := m.BebDeliver.Message
		switch inner.Type {
		case types.MessageTypeEpRead:
			ep.handleRead(m.BebDeliver.Sender)
			return true
		case types.MessageTypeEpWrite:
			if inner.EpWrite == nil {
				return false
			}
			ep.handleWrite(m.BebDeliver.Sender, inner.EpWrite.Value)
			return true
		case types.MessageTypeEpDecided:
			if inner.EpDecided == nil {
				return false
			}
			ep.handleDecided(m.BebDeliver.Sender, inner.EpDecided.Value)
			return true
		}
		return false
	case types.MessageTypePlDeliver:
		if m.PlDeliver == nil || m.PlDeliver.Message == nil {
			return false
		}
		inner := m.PlDeliver.Message
		switch inner.Type {
		case types.MessageTypeEpState:
			ep.handleState(m.PlDeliver.Sender, inner.EpState)
			return true
		case types.MessageTypeEpAccept:
			ep.handleAccept()
			return true
		}
		return false
	case types.MessageTypeEpAbort:
		ep.handleAbort()
		return true
	}
	return false
}

// fromLeader guards the leader-only messages. READ, WRITE and DECIDED
// from anyone but the epoch's designated leader are consumed without
// effect; they are stragglers from an earlier epoch.
func (ep *EpochConsensus) fromLeader(sender *types.ProcessId) bool {
	return types.ProcessIDEqual(sender, ep.leader)
}

// handlePropose starts the read phase: the leader asks everyone for
// their current state.
func (ep *EpochConsensus) handlePropose(v *types.Value) {
	ep.tmpVal = types.CopyValue(v)
	ep.system.Trigger(&types.Message{
		Type: types.MessageTypeBebBroadcast,
		BebBroadcast: &types.BebBroadcast{
			Message: &types.Message{
				Type:   types.MessageTypeEpRead,
				EpRead: &types.EpRead{},
			},
		},
	})
}

// handleRead answers the leader's read with this process's stored
// (timestamp, value) pair.
func (ep *EpochConsensus) handleRead(sender *types.ProcessId) {
	if !ep.fromLeader(sender) {
		return
	}
	ep.system.Trigger(&types.Message{
		Type: types.MessageTypePlSend,
		PlSend: &types.PlSend{
			Destination: sender,
			Message: &types.Message{
				Type: types.MessageTypeEpState,
				EpState: &types.EpState{
					ValueTimestamp: ep.state.ValueTimestamp,
					Value:          types.CopyValue(ep.state.Value),
				},
			},
		},
	})
}

// handleState is leader-side: collect states until a quorum, adopt the
// highest-timestamped defined value, then start the write phase.
func (ep *EpochConsensus) handleState(sender *types.ProcessId, st *types.EpState) {
	if sender == nil || st == nil {
		return
	}
	ep.states[sender.Port] = types.CopyEpState(st)
	if len(ep.states) <= ep.system.N()/2 {
		return
	}

	// Undefined states carry no information; only a defined value can
	// displace the leader's own proposal.
	maxTs := int32(-1)
	maxVal := types.UndefinedValue()
	for _, s := range ep.states {
		if s.Value == nil || !s.Value.Defined {
			continue
		}
		if s.ValueTimestamp > maxTs {
			maxTs = s.ValueTimestamp
			maxVal = s.Value
		}
	}
	if maxVal.Defined {
		ep.tmpVal = types.CopyValue(maxVal)
	}
	ep.states = make(map[int32]*types.EpState)

	ep.system.Trigger(&types.Message{
		Type: types.MessageTypeBebBroadcast,
		BebBroadcast: &types.BebBroadcast{
			Message: &types.Message{
				Type:    types.MessageTypeEpWrite,
				EpWrite: &types.EpWrite{Value: types.CopyValue(ep.tmpVal)},
			},
		},
	})
}

// handleWrite stores the leader's value under this epoch's timestamp and
// acknowledges.
func (ep *EpochConsensus) handleWrite(sender *types.ProcessId, v *types.Value) {
	if !ep.fromLeader(sender) {
		return
	}
	ep.state = &types.EpState{
		ValueTimestamp: ep.ets,
		Value:          types.CopyValue(v),
	}
	ep.system.Trigger(&types.Message{
		Type: types.MessageTypePlSend,
		PlSend: &types.PlSend{
			Destination: sender,
			Message: &types.Message{
				Type:     types.MessageTypeEpAccept,
				EpAccept: &types.EpAccept{},
			},
		},
	})
}

// handleAccept is leader-side: once a quorum has stored the value, the
// write succeeded and the decision is announced.
func (ep *EpochConsensus) handleAccept() {
	ep.accepted++
	if ep.accepted <= ep.system.N()/2 {
		return
	}
	ep.accepted = 0
	ep.system.Trigger(&types.Message{
		Type: types.MessageTypeBebBroadcast,
		BebBroadcast: &types.BebBroadcast{
			Message: &types.Message{
				Type:      types.MessageTypeEpDecided,
				EpDecided: &types.EpDecided{Value: types.CopyValue(ep.tmpVal)},
			},
		},
	})
}

// handleDecided reports the epoch's decision upward.
func (ep *EpochConsensus) handleDecided(sender *types.ProcessId, v *types.Value) {
	if !ep.fromLeader(sender) {
		return
	}
	ep.system.Trigger(&types.Message{
		Type: types.MessageTypeEpDecide,
		EpDecide: &types.EpDecide{
			Ets:   ep.ets,
			Value: types.CopyValue(v),
		},
	})
}

// handleAbort returns the instance's state for carry-over and halts it.
// No message after this one has any effect.
func (ep *EpochConsensus) handleAbort() {
	log.Printf("[INFO] ep: epoch %d aborted", ep.ets)
	ep.system.Trigger(&types.Message{
		Type: types.MessageTypeEpAborted,
		EpAborted: &types.EpAborted{
			Ets:            ep.ets,
			ValueTimestamp: ep.state.ValueTimestamp,
			Value:          types.CopyValue(ep.state.Value),
		},
	})
	ep.halted = true
}
