package consensus

import (
	"github.com/Deeathex/paxos/types"
)

const ecID = "ec"

// EpochChange produces a monotonically increasing sequence of
// (timestamp, leader) pairs. Each process keeps ts, the last timestamp
// it tried to start an epoch with as leader, initialized to its own
// rank. Self-trusting processes step ts in multiples of the group size,
// so timestamps from different leaders live in disjoint residue classes
// and never collide.
type EpochChange struct {
	system  *System
	lastTs  int32
	ts      int32
	trusted *types.ProcessId
}

// NewEpochChange creates the epoch-change layer. The initial trusted
// process is the minimum-rank member, matching uniform consensus's
// epoch-zero leader.
func NewEpochChange(s *System) *EpochChange {
	return &EpochChange{
		system:  s,
		lastTs:  0,
		ts:      s.CurrentProcess().Rank,
		trusted: s.MinRankProcess(),
	}
}

// Handle claims trust changes, NEWEPOCH broadcasts, and NACK replies.
func (ec *EpochChange) Handle(m *types.Message) bool {
	switch m.Type {
	case types.MessageTypeEldTrust:
		if m.EldTrust == nil {
			return false
		}
		ec.handleTrust(m.EldTrust.Process)
		return true
	case types.MessageTypeBebDeliver:
		if m.BebDeliver == nil || m.BebDeliver.Message == nil {
			return false
		}
		if m.BebDeliver.Message.Type != types.MessageTypeEcNewEpoch || m.BebDeliver.Message.EcNewEpoch == nil {
			return false
		}
		ec.handleNewEpoch(m.BebDeliver.Sender, m.BebDeliver.Message.EcNewEpoch.Timestamp)
		return true
	case types.MessageTypePlDeliver:
		if m.PlDeliver == nil || m.PlDeliver.Message == nil {
			return false
		}
		if m.PlDeliver.Message.Type != types.MessageTypeEcNack {
			return false
		}
		ec.handleNack()
		return true
	}
	return false
}

// handleTrust records the new trusted process; a process that now trusts
// itself claims the next timestamp in its residue class and broadcasts
// NEWEPOCH.
func (ec *EpochChange) handleTrust(p *types.ProcessId) {
	ec.trusted = p
	if p.Rank == ec.system.CurrentProcess().Rank {
		ec.ts += int32(ec.system.N())
		ec.broadcastNewEpoch()
	}
}

// handleNewEpoch accepts a NEWEPOCH from the process this node currently
// trusts if it advances lastTs; anything else earns the sender a NACK.
func (ec *EpochChange) handleNewEpoch(sender *types.ProcessId, newTs int32) {
	if types.ProcessIDEqual(sender, ec.trusted) && newTs > ec.lastTs {
		ec.lastTs = newTs
		ec.system.Trigger(&types.Message{
			Type:          types.MessageTypeEcStartEpoch,
			AbstractionID: ecID,
			EcStartEpoch: &types.EcStartEpoch{
				NewTimestamp: newTs,
				NewLeader:    sender,
			},
		})
		return
	}

	ec.system.Trigger(&types.Message{
		Type: types.MessageTypePlSend,
		PlSend: &types.PlSend{
			Destination: sender,
			Message: &types.Message{
				Type:          types.MessageTypeEcNack,
				AbstractionID: ecID,
				EcNack:        &types.EcNack{},
			},
		},
	})
}

// handleNack retries with a higher timestamp, provided this node still
// trusts itself.
func (ec *EpochChange) handleNack() {
	if types.ProcessIDEqual(ec.trusted, ec.system.CurrentProcess()) {
		ec.ts += int32(ec.system.N())
		ec.broadcastNewEpoch()
	}
}

func (ec *EpochChange) broadcastNewEpoch() {
	ec.system.Trigger(&types.Message{
		Type: types.MessageTypeBebBroadcast,
		BebBroadcast: &types.BebBroadcast{
			Message: &types.Message{
				Type:          types.MessageTypeEcNewEpoch,
				AbstractionID: ecID,
				EcNewEpoch:    &types.EcNewEpoch{Timestamp: ec.ts},
			},
		},
	})
}
