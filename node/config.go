package node

import (
	"time"

	"github.com/Deeathex/paxos/consensus"
)

// Config holds the node's identity and endpoints.
type Config struct {
	// Owner and Index identify this node at the hub; together with the
	// port they form the node's registration.
	Owner string
	Index int32

	// Port is the TCP listening port and the node's identity within
	// every membership list it appears in.
	Port int32

	// Hub endpoint for registration and decisions.
	HubHost string
	HubPort int32

	// Delta is passed through to each instance's failure detector.
	Delta time.Duration
}

// DefaultConfig returns a configuration with the standard timings.
func DefaultConfig() *Config {
	return &Config{
		Delta: consensus.DefaultDelta,
	}
}

// ValidateBasic performs basic validation of the config.
func (cfg *Config) ValidateBasic() error {
	if cfg.Owner == "" {
		return ErrMissingOwner
	}
	if cfg.Port <= 0 {
		return ErrInvalidPort
	}
	if cfg.HubHost == "" || cfg.HubPort <= 0 {
		return ErrMissingHub
	}
	return nil
}
