package consensus

import (
	"github.com/Deeathex/paxos/types"
)

// bebID tags broadcast traffic so the receiving side can tell broadcast
// deliveries from direct ones.
const bebID = "beb"

// BestEffortBroadcast sends a message to every member of the group,
// including the local process, over the perfect link. If the broadcaster
// is correct, every correct destination eventually delivers.
type BestEffortBroadcast struct {
	system *System
}

// NewBestEffortBroadcast creates the broadcast layer for a system.
func NewBestEffortBroadcast(s *System) *BestEffortBroadcast {
	return &BestEffortBroadcast{system: s}
}

// Handle claims BEB_BROADCAST requests and broadcast-tagged deliveries.
func (beb *BestEffortBroadcast) Handle(m *types.Message) bool {
	switch m.Type {
	case types.MessageTypeBebBroadcast:
		if m.BebBroadcast == nil {
			return false
		}
		beb.broadcast(m.BebBroadcast.Message)
		return true
	case types.MessageTypePlDeliver:
		// Only traffic this layer broadcast comes back tagged beb;
		// direct point-to-point deliveries belong to other layers.
		if m.AbstractionID != bebID || m.PlDeliver == nil {
			return false
		}
		beb.system.Trigger(&types.Message{
			Type:          types.MessageTypeBebDeliver,
			AbstractionID: bebID,
			BebDeliver: &types.BebDeliver{
				Sender:  m.PlDeliver.Sender,
				Message: m.PlDeliver.Message,
			},
		})
		return true
	}
	return false
}

func (beb *BestEffortBroadcast) broadcast(inner *types.Message) {
	for _, p := range beb.system.Processes() {
		beb.system.Trigger(&types.Message{
			Type:          types.MessageTypePlSend,
			AbstractionID: bebID,
			PlSend: &types.PlSend{
				Destination: p,
				Message:     inner,
			},
		})
	}
}
