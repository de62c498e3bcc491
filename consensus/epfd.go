package consensus

import (
	"log"
	"time"

	"github.com/Deeathex/paxos/types"
)

const epfdID = "epfd"

// EventuallyPerfectFailureDetector suspects crashed processes by
// exchanging heartbeats on an adaptive timeout. A process that fails to
// reply within the delay is suspected; if a suspected process replies in
// a later round it is restored and the delay grows by one delta, so
// suspicions become accurate once the delay exceeds the real round-trip
// bound.
type EventuallyPerfectFailureDetector struct {
	system *System
	delta  time.Duration
	delay  time.Duration

	alive     map[int32]*types.ProcessId
	suspected map[int32]*types.ProcessId

	timer *heartbeatTimer
}

// NewEventuallyPerfectFailureDetector creates the detector and arms the
// first timeout. Everyone starts out alive.
func NewEventuallyPerfectFailureDetector(s *System) *EventuallyPerfectFailureDetector {
	d := &EventuallyPerfectFailureDetector{
		system:    s,
		delta:     s.cfg.Delta,
		delay:     s.cfg.Delta,
		alive:     make(map[int32]*types.ProcessId),
		suspected: make(map[int32]*types.ProcessId),
	}
	for _, p := range s.Processes() {
		d.alive[p.Port] = p
	}
	d.timer = newHeartbeatTimer(func() {
		s.Trigger(&types.Message{
			Type:        types.MessageTypeEpfdTimeout,
			EpfdTimeout: &types.EpfdTimeout{},
		})
	})
	d.timer.Schedule(d.delay)
	return d
}

// Stop cancels the heartbeat timer.
func (d *EventuallyPerfectFailureDetector) Stop() {
	d.timer.Stop()
}

// Delay returns the current timeout (for tests and monitoring).
func (d *EventuallyPerfectFailureDetector) Delay() time.Duration {
	return d.delay
}

// Handle claims heartbeat deliveries and the timer's timeout marker.
func (d *EventuallyPerfectFailureDetector) Handle(m *types.Message) bool {
	switch m.Type {
	case types.MessageTypePlDeliver:
		if m.PlDeliver == nil || m.PlDeliver.Message == nil {
			return false
		}
		switch m.PlDeliver.Message.Type {
		case types.MessageTypeEpfdHeartbeatRequest:
			d.handleHeartbeatRequest(m.PlDeliver.Sender)
			return true
		case types.MessageTypeEpfdHeartbeatReply:
			d.handleHeartbeatReply(m.PlDeliver.Sender)
			return true
		}
		return false
	case types.MessageTypeEpfdTimeout:
		d.handleTimeout()
		return true
	}
	return false
}

func (d *EventuallyPerfectFailureDetector) handleHeartbeatRequest(sender *types.ProcessId) {
	if sender == nil {
		return
	}
	d.system.Trigger(&types.Message{
		Type:          types.MessageTypePlSend,
		AbstractionID: epfdID,
		PlSend: &types.PlSend{
			Destination: sender,
			Message: &types.Message{
				Type:               types.MessageTypeEpfdHeartbeatReply,
				EpfdHeartbeatReply: &types.EpfdHeartbeatReply{},
			},
		},
	})
}

func (d *EventuallyPerfectFailureDetector) handleHeartbeatReply(sender *types.ProcessId) {
	if sender == nil {
		return
	}
	d.alive[sender.Port] = sender
}

// handleTimeout runs one detection round: grow the delay if any
// suspicion proved premature, update the suspected set, request fresh
// heartbeats, and rearm the timer.
func (d *EventuallyPerfectFailureDetector) handleTimeout() {
	for port := range d.alive {
		if _, ok := d.suspected[port]; ok {
			d.delay += d.delta
			log.Printf("[INFO] epfd: premature suspicion, delay increased to %v", d.delay)
			break
		}
	}

	for _, p := range d.system.Processes() {
		_, isAlive := d.alive[p.Port]
		_, isSuspected := d.suspected[p.Port]

		if !isAlive && !isSuspected {
			d.suspected[p.Port] = p
			d.system.Trigger(&types.Message{
				Type:        types.MessageTypeEpfdSuspect,
				EpfdSuspect: &types.EpfdSuspect{Process: p},
			})
		} else if isAlive && isSuspected {
			delete(d.suspected, p.Port)
			d.system.Trigger(&types.Message{
				Type:        types.MessageTypeEpfdRestore,
				EpfdRestore: &types.EpfdRestore{Process: p},
			})
		}

		d.system.Trigger(&types.Message{
			Type:          types.MessageTypePlSend,
			AbstractionID: epfdID,
			PlSend: &types.PlSend{
				Destination: p,
				Message: &types.Message{
					Type:                 types.MessageTypeEpfdHeartbeatRequest,
					EpfdHeartbeatRequest: &types.EpfdHeartbeatRequest{},
				},
			},
		})
	}

	d.alive = make(map[int32]*types.ProcessId)
	d.timer.Schedule(d.delay)
}
