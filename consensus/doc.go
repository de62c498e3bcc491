// Package consensus implements a leader-driven uniform consensus stack
// as a set of message-passing abstractions over a per-instance
// dispatcher.
//
// The stack, bottom to top:
//
//	PerfectLink → BestEffortBroadcast → EventuallyPerfectFailureDetector
//	→ EventualLeaderDetector → EpochChange → EpochConsensus
//	→ UniformConsensus → Application
//
// # Core Components
//
// System: the per-instance dispatcher. It owns a FIFO message queue and
// the registered abstraction list, and runs a single goroutine that
// offers each queued message to the abstractions in registration order.
// The first abstraction to claim a message consumes it; unclaimed
// messages are skipped and retried on later sweeps. Abstractions
// communicate only by triggering new messages into the queue, never by
// calling each other.
//
// EventuallyPerfectFailureDetector: heartbeat request/reply rounds with
// an adaptive timeout. A round that restores a previously suspected
// process proves the delay was too short, so the delay grows by one
// delta. The timer never touches detector state; it enqueues an
// EPFD_TIMEOUT marker that the dispatcher thread processes.
//
// EventualLeaderDetector: trusts the highest-rank process that is not
// suspected. EpochChange turns leader changes into a monotonically
// increasing (timestamp, leader) sequence; each self-trusting process
// claims timestamps from its own residue class by stepping in multiples
// of the group size.
//
// EpochConsensus: one instance per epoch timestamp, created with the
// state carried over from the aborted predecessor. The leader reads a
// quorum of states, adopts the highest-timestamped defined value, writes
// it to a quorum, and announces the decision. An aborted instance
// returns its state and halts for good.
//
// UniformConsensus: sequences epoch instances, ignores events from stale
// epochs, and emits the single UC_DECIDE of the run.
//
// Application: receives the membership and proposal from the hub, wires
// the stack, and reports the decision back.
//
// # Concurrency
//
// All abstraction state is owned by the dispatcher goroutine. The only
// other actors are the failure-detector timer and the network listener,
// and both communicate exclusively by enqueueing messages.
package consensus
