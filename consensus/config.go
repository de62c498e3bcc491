package consensus

import (
	"time"

	"github.com/Deeathex/paxos/types"
)

const (
	// DefaultDelta is the initial failure-detector timeout and the
	// increment applied whenever a suspicion proves premature.
	DefaultDelta = 100 * time.Millisecond

	// DefaultSweepInterval is how long the dispatcher sleeps when a
	// sweep made no progress.
	DefaultSweepInterval = 10 * time.Millisecond
)

// Sender delivers an outbound message to a host:port. The node wires
// this to its TCP sender; tests may route messages in memory.
type Sender func(m *types.Message, host string, port int32)

// Config holds the configuration of one consensus instance.
type Config struct {
	// SystemID identifies this consensus instance at the hub.
	SystemID string

	// NodePort is the local node's listening port; it doubles as the
	// node's identity within the membership list.
	NodePort int32

	// Hub endpoint for registration and decisions.
	HubHost string
	HubPort int32

	// Delta is the failure-detector timeout increment.
	Delta time.Duration

	// SweepInterval is the dispatcher's idle sleep.
	SweepInterval time.Duration

	// Send delivers outbound messages.
	Send Sender
}

// DefaultConfig returns a configuration with the standard timings.
func DefaultConfig() *Config {
	return &Config{
		Delta:         DefaultDelta,
		SweepInterval: DefaultSweepInterval,
	}
}

// ValidateBasic performs basic validation of the config.
func (cfg *Config) ValidateBasic() error {
	if cfg.SystemID == "" {
		return ErrMissingSystemID
	}
	if cfg.NodePort <= 0 {
		return ErrInvalidPort
	}
	if cfg.Send == nil {
		return ErrMissingSender
	}
	return nil
}
