package consensus

import (
	"log"

	"github.com/Deeathex/paxos/types"
)

// Application is the topmost layer. It receives the hub's proposal,
// assembles the rest of the stack for the consensus instance, forwards
// the proposed value into uniform consensus, and reports the decision
// back to the hub.
type Application struct {
	system *System
}

// NewApplication creates the application layer for a system.
func NewApplication(s *System) *Application {
	return &Application{system: s}
}

// Handle claims the hub's proposal and the consensus decision.
func (app *Application) Handle(m *types.Message) bool {
	switch m.Type {
	case types.MessageTypePlDeliver:
		if m.PlDeliver == nil || m.PlDeliver.Message == nil {
			return false
		}
		if m.PlDeliver.Message.Type != types.MessageTypeAppPropose {
			return false
		}
		app.handlePropose(m.PlDeliver.Message.AppPropose)
		return true
	case types.MessageTypeUcDecide:
		if m.UcDecide == nil {
			return false
		}
		app.handleDecide(m.UcDecide.Value)
		return true
	}
	return false
}

// handlePropose wires up the full stack for this instance and feeds the
// proposal into uniform consensus. Registration order matters: the link
// must exist before the detectors start sending heartbeats, and epoch
// change must exist before uniform consensus starts epoch zero.
func (app *Application) handlePropose(p *types.AppPropose) {
	if p == nil {
		return
	}
	s := app.system
	s.SetProcesses(p.Processes)
	if s.CurrentProcess() == nil {
		log.Printf("[ERROR] app: system %s membership omits port %d, dropping proposal",
			s.cfg.SystemID, s.cfg.NodePort)
		return
	}
	log.Printf("[INFO] app: system %s proposing %s among %d processes",
		s.cfg.SystemID, p.Value, len(p.Processes))

	s.Register(NewPerfectLink(s))
	s.Register(NewBestEffortBroadcast(s))
	s.Register(NewEventuallyPerfectFailureDetector(s))
	s.Register(NewEventualLeaderDetector(s))
	s.Register(NewEpochChange(s))
	s.Register(NewUniformConsensus(s))

	s.Trigger(&types.Message{
		Type: types.MessageTypeUcPropose,
		UcPropose: &types.UcPropose{
			Value: types.CopyValue(p.Value),
		},
	})
}

// handleDecide reports the decided value to the hub.
func (app *Application) handleDecide(v *types.Value) {
	s := app.system
	log.Printf("[INFO] app: system %s decided %s", s.cfg.SystemID, v)
	s.Trigger(&types.Message{
		Type: types.MessageTypePlSend,
		PlSend: &types.PlSend{
			Destination: &types.ProcessId{
				Host: s.cfg.HubHost,
				Port: s.cfg.HubPort,
			},
			Message: &types.Message{
				Type: types.MessageTypeAppDecide,
				AppDecide: &types.AppDecide{
					Value: types.CopyValue(v),
				},
			},
		},
	})
}
