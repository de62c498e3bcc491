package consensus

import (
	"testing"

	"github.com/Deeathex/paxos/types"
)

// sentRecord captures one outbound message handed to the sender.
type sentRecord struct {
	msg  *types.Message
	host string
	port int32
}

func testProcesses() []*types.ProcessId {
	return []*types.ProcessId{
		{Host: "127.0.0.1", Port: 5001, Owner: "alice", Index: 1, Rank: 1},
		{Host: "127.0.0.1", Port: 5002, Owner: "alice", Index: 2, Rank: 2},
		{Host: "127.0.0.1", Port: 5003, Owner: "bob", Index: 1, Rank: 3},
	}
}

// newTestSystem creates an unstarted system for port with the test
// membership installed. Outbound messages are appended to sent when it
// is non-nil.
func newTestSystem(t *testing.T, port int32, sent *[]sentRecord) *System {
	t.Helper()

	cfg := DefaultConfig()
	cfg.SystemID = "sys-test"
	cfg.NodePort = port
	cfg.HubHost = "127.0.0.1"
	cfg.HubPort = 5000
	cfg.Send = func(m *types.Message, host string, port int32) {
		if sent != nil {
			*sent = append(*sent, sentRecord{msg: m, host: host, port: port})
		}
	}

	s, err := NewSystem(cfg)
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	s.SetProcesses(testProcesses())
	return s
}

// drain removes and returns everything in the system's queue.
func drain(s *System) []*types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue
	s.queue = nil
	return q
}

func findByType(ms []*types.Message, mt types.MessageType) *types.Message {
	for _, m := range ms {
		if m.Type == mt {
			return m
		}
	}
	return nil
}

func countByType(ms []*types.Message, mt types.MessageType) int {
	n := 0
	for _, m := range ms {
		if m.Type == mt {
			n++
		}
	}
	return n
}

func proc(s *System, port int32) *types.ProcessId {
	return types.FindByPort(s.Processes(), port)
}

func definedValue(v int64) *types.Value {
	return &types.Value{Defined: true, V: v}
}

// claimFunc adapts a function to the Abstraction interface.
type claimFunc func(m *types.Message) bool

func (f claimFunc) Handle(m *types.Message) bool { return f(m) }
