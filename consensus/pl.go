package consensus

import (
	"github.com/Deeathex/paxos/types"
)

// PerfectLink hands PL_SEND messages to the network layer. Delivery
// failures are the network layer's to log; retries belong to the
// periodic logic of the layers above (heartbeats, epoch retries).
type PerfectLink struct {
	system *System
}

// NewPerfectLink creates the link layer for a system.
func NewPerfectLink(s *System) *PerfectLink {
	return &PerfectLink{system: s}
}

// Handle claims PL_SEND messages.
func (pl *PerfectLink) Handle(m *types.Message) bool {
	if m.Type != types.MessageTypePlSend || m.PlSend == nil {
		return false
	}
	dest := m.PlSend.Destination
	if dest == nil {
		return true
	}
	pl.system.send(m, dest.Host, dest.Port)
	return true
}
