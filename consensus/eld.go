package consensus

import (
	"log"

	"github.com/Deeathex/paxos/types"
)

// EventualLeaderDetector trusts the highest-rank process that is not
// currently suspected. Once suspicions stabilize, every correct process
// trusts the same correct leader.
type EventualLeaderDetector struct {
	system    *System
	suspected []*types.ProcessId
	leader    *types.ProcessId
}

// NewEventualLeaderDetector creates the detector and announces the
// initial leader: with nobody suspected, the maximum-rank member.
func NewEventualLeaderDetector(s *System) *EventualLeaderDetector {
	d := &EventualLeaderDetector{system: s}
	d.updateTrustedLeader()
	return d
}

// Handle claims suspicion and restore events.
func (d *EventualLeaderDetector) Handle(m *types.Message) bool {
	switch m.Type {
	case types.MessageTypeEpfdSuspect:
		if m.EpfdSuspect == nil {
			return false
		}
		if !types.Contains(d.suspected, m.EpfdSuspect.Process) {
			d.suspected = append(d.suspected, m.EpfdSuspect.Process)
			d.updateTrustedLeader()
		}
		return true
	case types.MessageTypeEpfdRestore:
		if m.EpfdRestore == nil {
			return false
		}
		d.suspected = types.Remove(d.suspected, m.EpfdRestore.Process)
		d.updateTrustedLeader()
		return true
	}
	return false
}

// updateTrustedLeader recomputes the maximum-rank non-suspected process
// and announces it when it changed. When every member is suspected the
// previous leader stands; there is nobody better to trust.
func (d *EventualLeaderDetector) updateTrustedLeader() {
	notSuspected := types.Difference(d.system.Processes(), d.suspected)
	candidate := types.MaxRank(notSuspected)
	if candidate == nil {
		return
	}
	if d.leader != nil && d.leader.Rank == candidate.Rank {
		return
	}

	d.leader = candidate
	log.Printf("[INFO] eld: trusting %s", candidate)
	d.system.Trigger(&types.Message{
		Type:     types.MessageTypeEldTrust,
		EldTrust: &types.EldTrust{Process: candidate},
	})
}
