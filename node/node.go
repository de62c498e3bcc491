package node

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/Deeathex/paxos/consensus"
	"github.com/Deeathex/paxos/types"
	"github.com/Deeathex/paxos/wire"
)

const dialTimeout = 2 * time.Second

// Node is the network front of a consensus participant. It owns the TCP
// listener and a map of running consensus instances keyed by system id.
type Node struct {
	cfg *Config

	mu      sync.RWMutex
	systems map[string]*consensus.System
	ln      net.Listener
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNode creates a node from a validated config.
func NewNode(cfg *Config) (*Node, error) {
	if cfg.Delta <= 0 {
		cfg.Delta = consensus.DefaultDelta
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	return &Node{
		cfg:     cfg,
		systems: make(map[string]*consensus.System),
	}, nil
}

// Start opens the listener, registers the node with the hub, and begins
// accepting connections.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", n.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", n.cfg.Port, err)
	}
	n.ln = ln
	n.ctx, n.cancel = context.WithCancel(context.Background())
	n.started = true

	n.wg.Add(1)
	go n.acceptLoop()

	n.register()
	log.Printf("[INFO] node: %s-%d listening on port %d", n.cfg.Owner, n.cfg.Index, n.cfg.Port)
	return nil
}

// Stop closes the listener and halts every running instance.
func (n *Node) Stop() error {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return ErrNotStarted
	}
	n.started = false
	systems := make([]*consensus.System, 0, len(n.systems))
	for _, s := range n.systems {
		systems = append(systems, s)
	}
	n.mu.Unlock()

	n.cancel()
	n.ln.Close()
	n.wg.Wait()

	for _, s := range systems {
		if err := s.Stop(); err != nil {
			log.Printf("[ERROR] node: stopping system %s: %v", s.SystemID(), err)
		}
	}
	return nil
}

// System returns the running instance for a system id, nil when absent.
func (n *Node) System(id string) *consensus.System {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.systems[id]
}

// register announces the node to the hub. The hub learns the listening
// port from the envelope and later addresses proposals to it.
func (n *Node) register() {
	n.Send(&types.Message{
		Type: types.MessageTypeAppRegistration,
		AppRegistration: &types.AppRegistration{
			Owner: n.cfg.Owner,
			Index: n.cfg.Index,
		},
	}, n.cfg.HubHost, n.cfg.HubPort)
}

// Send envelopes a message and ships it as one frame over a fresh
// connection. Delivery is best effort; failures are logged and dropped,
// the stack's retransmission-free layers tolerate loss of this kind only
// from crashed peers.
func (n *Node) Send(m *types.Message, host string, port int32) {
	env := wire.Envelope(m, n.cfg.Port)
	addr := net.JoinHostPort(host, fmt.Sprint(port))

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		log.Printf("[ERROR] node: dial %s: %v", addr, err)
		return
	}
	defer conn.Close()

	// A peer that accepts but never reads must not park the caller.
	conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	if err := wire.WriteMessage(conn, env); err != nil {
		log.Printf("[ERROR] node: send to %s: %v", addr, err)
	}
}

// acceptLoop accepts connections until the listener closes.
func (n *Node) acceptLoop() {
	defer n.wg.Done()

	for {
		conn, err := n.ln.Accept()
		if err != nil {
			select {
			case <-n.ctx.Done():
				return
			default:
				log.Printf("[ERROR] node: accept: %v", err)
				continue
			}
		}

		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.handleConn(conn)
		}()
	}
}

// handleConn reads frames off one connection until it closes.
func (n *Node) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		m, err := wire.ReadMessage(conn)
		if err != nil {
			return
		}
		n.route(m)
	}
}

// route dispatches one incoming envelope. An APP_PROPOSE creates and
// starts the instance for its system id; everything else is handed to
// the existing instance as a perfect-link delivery, with the sender
// resolved by listening port.
func (n *Node) route(m *types.Message) {
	if m.Type != types.MessageTypeNetworkMessage || m.NetworkMessage == nil {
		log.Printf("[WARN] node: dropping non-envelope message %s", m.Type)
		return
	}
	inner := m.NetworkMessage.Message
	if inner == nil {
		log.Printf("[WARN] node: dropping empty envelope")
		return
	}

	if inner.Type == types.MessageTypeAppPropose {
		s, err := n.ensureSystem(m.SystemID)
		if err != nil {
			log.Printf("[ERROR] node: starting system %q: %v", m.SystemID, err)
			return
		}
		s.Trigger(&types.Message{
			Type:          types.MessageTypePlDeliver,
			AbstractionID: m.AbstractionID,
			PlDeliver:     &types.PlDeliver{Message: inner},
		})
		return
	}

	s := n.System(m.SystemID)
	if s == nil {
		log.Printf("[WARN] node: dropping %s for unknown system %q", inner.Type, m.SystemID)
		return
	}
	s.Trigger(&types.Message{
		Type:          types.MessageTypePlDeliver,
		AbstractionID: m.AbstractionID,
		PlDeliver: &types.PlDeliver{
			Sender:  s.IdentifySender(m.NetworkMessage.SenderListeningPort),
			Message: inner,
		},
	})
}

// ensureSystem returns the instance for a system id, creating and
// starting it on first use.
func (n *Node) ensureSystem(id string) (*consensus.System, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if s, ok := n.systems[id]; ok {
		return s, nil
	}

	cfg := consensus.DefaultConfig()
	cfg.SystemID = id
	cfg.NodePort = n.cfg.Port
	cfg.HubHost = n.cfg.HubHost
	cfg.HubPort = n.cfg.HubPort
	cfg.Delta = n.cfg.Delta
	cfg.Send = n.Send

	s, err := consensus.NewSystem(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	n.systems[id] = s
	log.Printf("[INFO] node: started system %q", id)
	return s, nil
}
