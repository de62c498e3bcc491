package node

import (
	"net"
	"testing"
	"time"

	"github.com/Deeathex/paxos/types"
	"github.com/Deeathex/paxos/wire"
)

// fakeHub is a TCP listener that collects every message nodes send it.
type fakeHub struct {
	ln   net.Listener
	msgs chan *types.Message
}

func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("hub listen: %v", err)
	}
	h := &fakeHub{ln: ln, msgs: make(chan *types.Message, 16)}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				for {
					m, err := wire.ReadMessage(conn)
					if err != nil {
						return
					}
					h.msgs <- m
				}
			}()
		}
	}()
	return h
}

func (h *fakeHub) port() int32 {
	return int32(h.ln.Addr().(*net.TCPAddr).Port)
}

// awaitInner waits for an envelope whose inner message has the given
// type and returns the envelope.
func (h *fakeHub) awaitInner(t *testing.T, mt types.MessageType) *types.Message {
	t.Helper()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case m := <-h.msgs:
			if m.Type == types.MessageTypeNetworkMessage && m.NetworkMessage.Message != nil &&
				m.NetworkMessage.Message.Type == mt {
				return m
			}
		case <-deadline:
			t.Fatalf("no %s reached the hub", mt)
		}
	}
}

func freePort(t *testing.T) int32 {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("probe listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return int32(port)
}

func newTestNode(t *testing.T, hub *fakeHub) *Node {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Owner = "alice"
	cfg.Index = 1
	cfg.Port = freePort(t)
	cfg.HubHost = "127.0.0.1"
	cfg.HubPort = hub.port()

	n, err := NewNode(cfg)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return n
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 5001
	cfg.HubHost = "127.0.0.1"
	cfg.HubPort = 5000

	if _, err := NewNode(cfg); err != ErrMissingOwner {
		t.Errorf("expected ErrMissingOwner, got %v", err)
	}

	cfg.Owner = "alice"
	cfg.HubHost = ""
	if _, err := NewNode(cfg); err != ErrMissingHub {
		t.Errorf("expected ErrMissingHub, got %v", err)
	}
}

// TestRegistersWithHubOnStart verifies the first thing a node does is
// announce itself: an APP_REGISTRATION envelope carrying its owner,
// index, and listening port.
func TestRegistersWithHubOnStart(t *testing.T) {
	hub := newFakeHub(t)
	n := newTestNode(t, hub)

	if err := n.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer n.Stop()

	env := hub.awaitInner(t, types.MessageTypeAppRegistration)
	reg := env.NetworkMessage.Message.AppRegistration
	if reg.Owner != "alice" || reg.Index != 1 {
		t.Errorf("registered as %s-%d, want alice-1", reg.Owner, reg.Index)
	}
	if env.NetworkMessage.SenderListeningPort != n.cfg.Port {
		t.Errorf("registered port %d, want %d", env.NetworkMessage.SenderListeningPort, n.cfg.Port)
	}
}

// TestProposeRunsConsensusAndReportsDecision drives a single-member
// consensus through the real TCP path: the hub proposes, the node runs
// the full stack against itself, and the decision comes back as an
// APP_DECIDE envelope.
func TestProposeRunsConsensusAndReportsDecision(t *testing.T) {
	hub := newFakeHub(t)
	n := newTestNode(t, hub)

	if err := n.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer n.Stop()
	hub.awaitInner(t, types.MessageTypeAppRegistration)

	env := &types.Message{
		Type:     types.MessageTypeNetworkMessage,
		SystemID: "sys-node-test",
		NetworkMessage: &types.NetworkMessage{
			SenderListeningPort: hub.port(),
			Message: &types.Message{
				Type: types.MessageTypeAppPropose,
				AppPropose: &types.AppPropose{
					Processes: []*types.ProcessId{
						{Host: "127.0.0.1", Port: n.cfg.Port, Owner: "alice", Index: 1, Rank: 1},
					},
					Value: &types.Value{Defined: true, V: 7},
				},
			},
		},
	}

	conn, err := net.Dial("tcp", n.ln.Addr().String())
	if err != nil {
		t.Fatalf("dial node: %v", err)
	}
	if err := wire.WriteMessage(conn, env); err != nil {
		t.Fatalf("send proposal: %v", err)
	}
	conn.Close()

	report := hub.awaitInner(t, types.MessageTypeAppDecide)
	if report.SystemID != "sys-node-test" {
		t.Errorf("decision for system %q, want sys-node-test", report.SystemID)
	}
	v := report.NetworkMessage.Message.AppDecide.Value
	if v == nil || !v.Defined || v.V != 7 {
		t.Errorf("decided %s, want 7", v)
	}
	if n.System("sys-node-test") == nil {
		t.Error("the instance should stay registered under its system id")
	}
}

// TestThreeNodesInOneProcessDecide runs a three-member consensus with
// all nodes hosted by a single process, the way the multi-node
// bootstrap starts them: consecutive indexes, one listener each, all
// registered at the same hub.
func TestThreeNodesInOneProcessDecide(t *testing.T) {
	hub := newFakeHub(t)

	nodes := make([]*Node, 0, 3)
	for i := 0; i < 3; i++ {
		cfg := DefaultConfig()
		cfg.Owner = "alice"
		cfg.Index = int32(i + 1)
		cfg.Port = freePort(t)
		cfg.HubHost = "127.0.0.1"
		cfg.HubPort = hub.port()
		cfg.Delta = 50 * time.Millisecond

		n, err := NewNode(cfg)
		if err != nil {
			t.Fatalf("new node %d: %v", i, err)
		}
		if err := n.Start(); err != nil {
			t.Fatalf("start node %d: %v", i, err)
		}
		t.Cleanup(func() { n.Stop() })
		nodes = append(nodes, n)
	}
	for range nodes {
		hub.awaitInner(t, types.MessageTypeAppRegistration)
	}

	procs := make([]*types.ProcessId, len(nodes))
	for i, n := range nodes {
		procs[i] = &types.ProcessId{
			Host:  "127.0.0.1",
			Port:  n.cfg.Port,
			Owner: n.cfg.Owner,
			Index: n.cfg.Index,
			Rank:  int32(i + 1),
		}
	}

	for _, n := range nodes {
		env := &types.Message{
			Type:     types.MessageTypeNetworkMessage,
			SystemID: "sys-three",
			NetworkMessage: &types.NetworkMessage{
				SenderListeningPort: hub.port(),
				Message: &types.Message{
					Type: types.MessageTypeAppPropose,
					AppPropose: &types.AppPropose{
						Processes: procs,
						Value:     &types.Value{Defined: true, V: 42},
					},
				},
			},
		}
		conn, err := net.Dial("tcp", n.ln.Addr().String())
		if err != nil {
			t.Fatalf("dial node: %v", err)
		}
		if err := wire.WriteMessage(conn, env); err != nil {
			t.Fatalf("send proposal: %v", err)
		}
		conn.Close()
	}

	for i := 0; i < len(nodes); i++ {
		report := hub.awaitInner(t, types.MessageTypeAppDecide)
		v := report.NetworkMessage.Message.AppDecide.Value
		if v == nil || !v.Defined || v.V != 42 {
			t.Errorf("decision %d: got %s, want 42", i, v)
		}
	}
}

// TestSendReturnsWhenPeerStallsReads verifies an accepted connection
// whose peer never reads cannot park the sender: the write gives up on
// its deadline. The payload is padded well past the socket buffers so
// the write genuinely blocks.
func TestSendReturnsWhenPeerStallsReads(t *testing.T) {
	hub := newFakeHub(t)
	n := newTestNode(t, hub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("stalled peer listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		// Accept and hold the connection without ever reading.
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		<-make(chan struct{})
	}()

	padding := make([]*types.ProcessId, 20000)
	for i := range padding {
		padding[i] = &types.ProcessId{
			Host:  "10.0.0.1",
			Port:  int32(i + 1),
			Owner: "padding-owner",
			Index: int32(i + 1),
			Rank:  int32(i + 1),
		}
	}
	m := &types.Message{
		Type: types.MessageTypeAppPropose,
		AppPropose: &types.AppPropose{
			Processes: padding,
			Value:     &types.Value{Defined: true, V: 1},
		},
	}

	done := make(chan struct{})
	go func() {
		n.Send(m, "127.0.0.1", int32(ln.Addr().(*net.TCPAddr).Port))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * dialTimeout):
		t.Fatal("send blocked on a peer that never reads")
	}
}

// TestRouteDropsStrays verifies malformed and misaddressed traffic is
// dropped without creating instances.
func TestRouteDropsStrays(t *testing.T) {
	hub := newFakeHub(t)
	n := newTestNode(t, hub)

	// Not an envelope at all.
	n.route(&types.Message{Type: types.MessageTypeEcNack, EcNack: &types.EcNack{}})

	// An envelope for a system this node never started.
	n.route(&types.Message{
		Type:     types.MessageTypeNetworkMessage,
		SystemID: "sys-unknown",
		NetworkMessage: &types.NetworkMessage{
			SenderListeningPort: 5002,
			Message:             &types.Message{Type: types.MessageTypeEcNack, EcNack: &types.EcNack{}},
		},
	})

	n.mu.RLock()
	count := len(n.systems)
	n.mu.RUnlock()
	if count != 0 {
		t.Errorf("stray traffic created %d instances", count)
	}
}
