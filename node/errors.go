package node

import "errors"

var (
	ErrAlreadyStarted = errors.New("node already started")
	ErrNotStarted     = errors.New("node not started")
	ErrMissingOwner   = errors.New("owner must not be empty")
	ErrInvalidPort    = errors.New("port must be positive")
	ErrMissingHub     = errors.New("hub host and port must be set")
)
