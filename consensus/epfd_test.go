package consensus

import (
	"testing"
	"time"

	"github.com/Deeathex/paxos/types"
)

// newTestDetector creates a detector with its background timer disarmed
// so tests drive rounds by hand.
func newTestDetector(t *testing.T, s *System) *EventuallyPerfectFailureDetector {
	t.Helper()
	d := NewEventuallyPerfectFailureDetector(s)
	d.timer.Stop()
	drain(s)
	return d
}

func timeoutMsg() *types.Message {
	return &types.Message{Type: types.MessageTypeEpfdTimeout, EpfdTimeout: &types.EpfdTimeout{}}
}

func heartbeatReply(from *types.ProcessId) *types.Message {
	return &types.Message{
		Type: types.MessageTypePlDeliver,
		PlDeliver: &types.PlDeliver{
			Sender:  from,
			Message: &types.Message{Type: types.MessageTypeEpfdHeartbeatReply, EpfdHeartbeatReply: &types.EpfdHeartbeatReply{}},
		},
	}
}

func TestHeartbeatRequestAnswered(t *testing.T) {
	s := newTestSystem(t, 5001, nil)
	d := newTestDetector(t, s)

	claimed := d.Handle(&types.Message{
		Type: types.MessageTypePlDeliver,
		PlDeliver: &types.PlDeliver{
			Sender:  proc(s, 5002),
			Message: &types.Message{Type: types.MessageTypeEpfdHeartbeatRequest, EpfdHeartbeatRequest: &types.EpfdHeartbeatRequest{}},
		},
	})
	if !claimed {
		t.Fatal("heartbeat request should be claimed")
	}

	q := drain(s)
	reply := findByType(q, types.MessageTypePlSend)
	if reply == nil {
		t.Fatal("expected a PL_SEND reply")
	}
	if reply.PlSend.Destination.Port != 5002 {
		t.Errorf("reply destination: got %d, want 5002", reply.PlSend.Destination.Port)
	}
	if reply.PlSend.Message.Type != types.MessageTypeEpfdHeartbeatReply {
		t.Errorf("reply type: got %s", reply.PlSend.Message.Type)
	}
}

// TestSilentProcessSuspected runs two rounds: the first clears the alive
// set, the second suspects everyone who failed to reply in between.
func TestSilentProcessSuspected(t *testing.T) {
	s := newTestSystem(t, 5001, nil)
	d := newTestDetector(t, s)

	// Round 1: everyone starts alive, nobody is suspected.
	d.Handle(timeoutMsg())
	q := drain(s)
	if got := countByType(q, types.MessageTypeEpfdSuspect); got != 0 {
		t.Fatalf("no suspicions expected in round 1, got %d", got)
	}
	if got := countByType(q, types.MessageTypePlSend); got != 3 {
		t.Fatalf("expected 3 heartbeat requests, got %d", got)
	}

	// Only 5001 and 5002 reply.
	d.Handle(heartbeatReply(proc(s, 5001)))
	d.Handle(heartbeatReply(proc(s, 5002)))

	// Round 2: 5003 stayed silent.
	d.Handle(timeoutMsg())
	q = drain(s)
	suspects := findByType(q, types.MessageTypeEpfdSuspect)
	if suspects == nil {
		t.Fatal("expected a suspicion")
	}
	if suspects.EpfdSuspect.Process.Port != 5003 {
		t.Errorf("suspected %d, want 5003", suspects.EpfdSuspect.Process.Port)
	}
	if got := countByType(q, types.MessageTypeEpfdSuspect); got != 1 {
		t.Errorf("expected exactly 1 suspicion, got %d", got)
	}
}

// TestPrematureSuspicionRestoresAndGrowsDelay verifies the adaptive
// timeout: a reply from a suspected process restores it and increases
// the delay by one delta.
func TestPrematureSuspicionRestoresAndGrowsDelay(t *testing.T) {
	s := newTestSystem(t, 5001, nil)
	d := newTestDetector(t, s)
	delta := s.cfg.Delta

	// Suspect 5003 by letting it stay silent for a round.
	d.Handle(timeoutMsg())
	d.Handle(heartbeatReply(proc(s, 5001)))
	d.Handle(heartbeatReply(proc(s, 5002)))
	d.Handle(timeoutMsg())
	drain(s)

	if d.Delay() != delta {
		t.Fatalf("delay should still be the initial delta, got %v", d.Delay())
	}

	// The suspect replies after all.
	d.Handle(heartbeatReply(proc(s, 5003)))
	d.Handle(timeoutMsg())

	q := drain(s)
	restore := findByType(q, types.MessageTypeEpfdRestore)
	if restore == nil {
		t.Fatal("expected a restore")
	}
	if restore.EpfdRestore.Process.Port != 5003 {
		t.Errorf("restored %d, want 5003", restore.EpfdRestore.Process.Port)
	}
	if want := 2 * delta; d.Delay() != want {
		t.Errorf("delay: got %v, want %v", d.Delay(), want)
	}
}

// TestTimerFiresTimeoutMarker checks the wiring between the timer and
// the queue without driving rounds by hand.
func TestTimerFiresTimeoutMarker(t *testing.T) {
	s := newTestSystem(t, 5001, nil)
	s.cfg.Delta = 10 * time.Millisecond

	d := &EventuallyPerfectFailureDetector{
		system:    s,
		delta:     s.cfg.Delta,
		delay:     s.cfg.Delta,
		alive:     make(map[int32]*types.ProcessId),
		suspected: make(map[int32]*types.ProcessId),
	}
	d.timer = newHeartbeatTimer(func() {
		s.Trigger(timeoutMsg())
	})
	d.timer.Schedule(d.delay)
	defer d.timer.Stop()

	deadline := time.After(time.Second)
	for {
		if findByType(drain(s), types.MessageTypeEpfdTimeout) != nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timeout marker never enqueued")
		case <-time.After(2 * time.Millisecond):
		}
	}
}
