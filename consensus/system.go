package consensus

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Deeathex/paxos/types"
)

// Abstraction is one layer of the stack. Handle inspects a message and
// returns true iff the abstraction claims it; a claimed message is
// removed from the queue. Handlers run on the dispatcher goroutine and
// must not block.
type Abstraction interface {
	Handle(m *types.Message) bool
}

// stopper is implemented by abstractions that own background resources
// (the failure detector's timer).
type stopper interface {
	Stop()
}

// System is the dispatcher of one consensus instance. It owns the
// message queue and the abstraction list; all abstraction state is
// mutated only from the dispatcher goroutine.
type System struct {
	cfg *Config

	mu           sync.RWMutex
	queue        []*types.Message
	abstractions []Abstraction
	processes    []*types.ProcessId
	current      *types.ProcessId
	epoch        *EpochConsensus

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewSystem creates a consensus instance. Only the application layer is
// registered up front; it wires the rest of the stack when the hub's
// proposal arrives.
func NewSystem(cfg *Config) (*System, error) {
	if cfg.Delta <= 0 {
		cfg.Delta = DefaultDelta
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	s := &System{cfg: cfg}
	s.Register(NewApplication(s))
	return s, nil
}

// SystemID returns the instance identifier.
func (s *System) SystemID() string {
	return s.cfg.SystemID
}

// Start launches the dispatcher goroutine.
func (s *System) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.started = true

	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop halts the dispatcher and any abstraction-owned timers.
func (s *System) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	abstractions := append([]Abstraction(nil), s.abstractions...)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	for _, a := range abstractions {
		if st, ok := a.(stopper); ok {
			st.Stop()
		}
	}
	return nil
}

// Trigger stamps the message with the system id and enqueues it.
func (s *System) Trigger(m *types.Message) {
	m.SystemID = s.cfg.SystemID
	s.mu.Lock()
	s.queue = append(s.queue, m)
	s.mu.Unlock()
}

// Register appends an abstraction to the dispatch order.
func (s *System) Register(a Abstraction) {
	s.mu.Lock()
	s.abstractions = append(s.abstractions, a)
	s.mu.Unlock()
}

// SetProcesses installs the membership list and resolves the local
// process by listening port.
func (s *System) SetProcesses(list []*types.ProcessId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes = append([]*types.ProcessId(nil), list...)
	s.current = types.FindByPort(s.processes, s.cfg.NodePort)
	if s.current == nil {
		log.Printf("[WARN] consensus: node port %d not in membership of system %q",
			s.cfg.NodePort, s.cfg.SystemID)
	}
}

// Processes returns the membership list.
func (s *System) Processes() []*types.ProcessId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processes
}

// N returns the membership size.
func (s *System) N() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}

// CurrentProcess returns the local process identity, nil before the
// membership is installed.
func (s *System) CurrentProcess() *types.ProcessId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// MinRankProcess returns the lowest-rank member, the initial leader of
// epoch zero.
func (s *System) MinRankProcess() *types.ProcessId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.MinRank(s.processes)
}

// IdentifySender resolves a sender's listening port against the
// membership list.
func (s *System) IdentifySender(port int32) *types.ProcessId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.FindByPort(s.processes, port)
}

// StartEpoch creates the epoch-consensus instance for ets with the
// carried-over state and registers it, discarding the halted
// predecessor. Instances self-halt on abort, so keeping the old one
// would only leak memory and one dispatch probe per message.
func (s *System) StartEpoch(ets int32, leader *types.ProcessId, state *types.EpState) {
	ep := NewEpochConsensus(s, ets, leader, state)

	s.mu.Lock()
	if s.epoch != nil {
		for i, a := range s.abstractions {
			if a == Abstraction(s.epoch) {
				s.abstractions = append(s.abstractions[:i], s.abstractions[i+1:]...)
				break
			}
		}
	}
	s.epoch = ep
	s.abstractions = append(s.abstractions, ep)
	s.mu.Unlock()
}

// send hands an outbound message to the configured sender.
func (s *System) send(m *types.Message, host string, port int32) {
	s.cfg.Send(m, host, port)
}

// run is the dispatcher loop: sweep until no message is claimed, then
// sleep one interval.
func (s *System) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if s.sweep() {
			continue
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.cfg.SweepInterval):
		}
	}
}

// sweep offers queued messages to the abstractions in registration
// order, oldest message first. The first abstraction to claim a message
// consumes it and the sweep reports progress; unclaimed messages stay in
// place for future sweeps.
func (s *System) sweep() bool {
	s.mu.RLock()
	n := len(s.queue)
	abstractions := append([]Abstraction(nil), s.abstractions...)
	s.mu.RUnlock()

	for i := 0; i < n; i++ {
		s.mu.RLock()
		m := s.queue[i]
		s.mu.RUnlock()

		for _, a := range abstractions {
			if a.Handle(m) {
				// Only the dispatcher removes; appends during handling
				// go to the tail, so index i is still valid.
				s.mu.Lock()
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				s.mu.Unlock()
				return true
			}
		}
	}
	return false
}

// QueueLen reports the number of pending messages (for tests and
// monitoring).
func (s *System) QueueLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue)
}
