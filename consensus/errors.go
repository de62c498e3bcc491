package consensus

import "errors"

// Consensus errors
var (
	ErrAlreadyStarted  = errors.New("system already started")
	ErrNotStarted      = errors.New("system not started")
	ErrMissingSystemID = errors.New("missing system id")
	ErrMissingSender   = errors.New("no sender configured")
	ErrInvalidPort     = errors.New("invalid node port")
)
