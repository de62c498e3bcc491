package consensus

import (
	"log"

	"github.com/Deeathex/paxos/types"
)

// UniformConsensus drives a sequence of epoch-consensus instances until
// one of them decides. It tracks the current epoch (ets, l) and the next
// one announced by epoch change (newts, newl); on a change it aborts the
// running instance, waits for its carried-over state, and starts the
// successor with that state. A process whose leader is itself proposes
// into the new epoch.
type UniformConsensus struct {
	system *System

	val      *types.Value
	proposed bool
	decided  bool

	ets int32
	l   *types.ProcessId

	newTs int32
	newL  *types.ProcessId
}

// NewUniformConsensus creates the layer and starts epoch zero, led by
// the minimum-rank member, with empty state.
func NewUniformConsensus(s *System) *UniformConsensus {
	uc := &UniformConsensus{
		system: s,
		val:    types.UndefinedValue(),
		l:      s.MinRankProcess(),
	}
	s.StartEpoch(0, uc.l, types.InitialEpState())
	return uc
}

// Handle claims proposals, epoch starts, and the running epoch's abort
// and decide reports.
func (uc *UniformConsensus) Handle(m *types.Message) bool {
	switch m.Type {
	case types.MessageTypeUcPropose:
		if m.UcPropose == nil {
			return false
		}
		uc.val = types.CopyValue(m.UcPropose.Value)
		uc.checkToProposeEpoch()
		return true
	case types.MessageTypeEcStartEpoch:
		if m.EcStartEpoch == nil {
			return false
		}
		uc.newTs = m.EcStartEpoch.NewTimestamp
		uc.newL = m.EcStartEpoch.NewLeader
		uc.system.Trigger(&types.Message{
			Type:    types.MessageTypeEpAbort,
			EpAbort: &types.EpAbort{},
		})
		return true
	case types.MessageTypeEpAborted:
		if m.EpAborted == nil || m.EpAborted.Ets != uc.ets {
			return false
		}
		uc.handleAborted(m.EpAborted)
		return true
	case types.MessageTypeEpDecide:
		if m.EpDecide == nil || m.EpDecide.Ets != uc.ets {
			return false
		}
		uc.handleDecide(m.EpDecide.Value)
		return true
	}
	return false
}

// handleAborted switches to the announced epoch, carrying the aborted
// instance's state into the successor.
func (uc *UniformConsensus) handleAborted(ab *types.EpAborted) {
	uc.ets = uc.newTs
	uc.l = uc.newL
	uc.proposed = false
	uc.system.StartEpoch(uc.ets, uc.l, &types.EpState{
		ValueTimestamp: ab.ValueTimestamp,
		Value:          types.CopyValue(ab.Value),
	})
	uc.checkToProposeEpoch()
}

// handleDecide reports the first epoch decision as the consensus
// decision; later ones are absorbed.
func (uc *UniformConsensus) handleDecide(v *types.Value) {
	if uc.decided {
		return
	}
	uc.decided = true
	log.Printf("[INFO] uc: decided %s in epoch %d", v, uc.ets)
	uc.system.Trigger(&types.Message{
		Type:     types.MessageTypeUcDecide,
		UcDecide: &types.UcDecide{Value: types.CopyValue(v)},
	})
}

// checkToProposeEpoch proposes this node's value into the current epoch
// when it is the leader, holds a defined value, and has not proposed to
// this epoch yet.
func (uc *UniformConsensus) checkToProposeEpoch() {
	if !types.ProcessIDEqual(uc.l, uc.system.CurrentProcess()) {
		return
	}
	if !uc.val.Defined || uc.proposed {
		return
	}
	uc.proposed = true
	uc.system.Trigger(&types.Message{
		Type: types.MessageTypeEpPropose,
		EpPropose: &types.EpPropose{
			Value: types.CopyValue(uc.val),
		},
	})
}
