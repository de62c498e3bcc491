package consensus

import (
	"testing"
	"time"

	"github.com/Deeathex/paxos/types"
)

func TestNewSystemValidatesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodePort = 5001
	cfg.Send = func(m *types.Message, host string, port int32) {}

	// Missing system id
	if _, err := NewSystem(cfg); err != ErrMissingSystemID {
		t.Errorf("expected ErrMissingSystemID, got %v", err)
	}

	cfg.SystemID = "sys-test"
	cfg.Send = nil
	if _, err := NewSystem(cfg); err != ErrMissingSender {
		t.Errorf("expected ErrMissingSender, got %v", err)
	}
}

func TestTriggerStampsSystemID(t *testing.T) {
	s := newTestSystem(t, 5001, nil)

	s.Trigger(&types.Message{Type: types.MessageTypeEpAbort, EpAbort: &types.EpAbort{}})

	q := drain(s)
	if len(q) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(q))
	}
	if q[0].SystemID != "sys-test" {
		t.Errorf("system id not stamped: %q", q[0].SystemID)
	}
}

// TestSweepClaimRemovesOldestClaimed verifies the queue contract: the
// sweep offers messages oldest first, removes the first claimed one, and
// leaves unclaimed messages in place.
func TestSweepClaimRemovesOldestClaimed(t *testing.T) {
	s := newTestSystem(t, 5001, nil)
	s.Register(claimFunc(func(m *types.Message) bool {
		return m.Type == types.MessageTypeEpAbort
	}))

	s.Trigger(&types.Message{Type: types.MessageTypeEcNack, EcNack: &types.EcNack{}})
	s.Trigger(&types.Message{Type: types.MessageTypeEpAbort, EpAbort: &types.EpAbort{}})
	s.Trigger(&types.Message{Type: types.MessageTypeEpAbort, EpAbort: &types.EpAbort{}})

	if !s.sweep() {
		t.Fatal("sweep should have claimed a message")
	}
	if got := s.QueueLen(); got != 2 {
		t.Fatalf("expected 2 messages left, got %d", got)
	}

	q := drain(s)
	if q[0].Type != types.MessageTypeEcNack {
		t.Error("unclaimed message should keep its position")
	}
	if q[1].Type != types.MessageTypeEpAbort {
		t.Error("second claimed message should remain for the next sweep")
	}
}

func TestSweepNoProgressOnUnclaimed(t *testing.T) {
	s := newTestSystem(t, 5001, nil)

	s.Trigger(&types.Message{Type: types.MessageTypeEcNack, EcNack: &types.EcNack{}})

	if s.sweep() {
		t.Error("sweep should report no progress when nothing claims")
	}
	if got := s.QueueLen(); got != 1 {
		t.Errorf("unclaimed message should stay queued, got %d", got)
	}
}

func TestStartStop(t *testing.T) {
	s := newTestSystem(t, 5001, nil)

	if err := s.Stop(); err != ErrNotStarted {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

// TestDispatcherDrainsClaimedMessages runs the dispatcher goroutine and
// checks claimed messages disappear from the queue without intervention.
func TestDispatcherDrainsClaimedMessages(t *testing.T) {
	s := newTestSystem(t, 5001, nil)
	claimed := make(chan *types.Message, 8)
	s.Register(claimFunc(func(m *types.Message) bool {
		if m.Type != types.MessageTypeEpAbort {
			return false
		}
		claimed <- m
		return true
	}))

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	for i := 0; i < 3; i++ {
		s.Trigger(&types.Message{Type: types.MessageTypeEpAbort, EpAbort: &types.EpAbort{}})
	}

	for i := 0; i < 3; i++ {
		select {
		case <-claimed:
		case <-time.After(time.Second):
			t.Fatalf("message %d not dispatched", i)
		}
	}

	deadline := time.After(time.Second)
	for s.QueueLen() != 0 {
		select {
		case <-deadline:
			t.Fatalf("queue not drained, %d left", s.QueueLen())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// TestStartEpochReplacesInstance verifies only one epoch-consensus
// instance is registered at a time.
func TestStartEpochReplacesInstance(t *testing.T) {
	s := newTestSystem(t, 5001, nil)
	leader := proc(s, 5001)

	s.StartEpoch(0, leader, types.InitialEpState())
	s.StartEpoch(3, proc(s, 5003), types.InitialEpState())

	s.mu.RLock()
	count := 0
	for _, a := range s.abstractions {
		if _, ok := a.(*EpochConsensus); ok {
			count++
		}
	}
	ets := s.epoch.Ets()
	s.mu.RUnlock()

	if count != 1 {
		t.Errorf("expected 1 registered epoch instance, got %d", count)
	}
	if ets != 3 {
		t.Errorf("expected current epoch 3, got %d", ets)
	}
}

func TestIdentifySender(t *testing.T) {
	s := newTestSystem(t, 5001, nil)

	if p := s.IdentifySender(5002); p == nil || p.Rank != 2 {
		t.Errorf("expected rank-2 process for port 5002, got %s", p)
	}
	if p := s.IdentifySender(9999); p != nil {
		t.Errorf("unknown port should resolve to nil, got %s", p)
	}
}
