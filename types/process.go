package types

import "fmt"

// ProcessId identifies a participant in a consensus instance.
type ProcessId struct {
	Host  string
	Port  int32
	Owner string
	Index int32
	Rank  int32
}

// String returns a short human-readable form for logging.
func (p *ProcessId) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s-%d@%s:%d(rank=%d)", p.Owner, p.Index, p.Host, p.Port, p.Rank)
}

// ProcessIDEqual reports whether two ProcessIds name the same participant.
// Identity is by port alone; ports are unique within an instance.
func ProcessIDEqual(a, b *ProcessId) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Port == b.Port
}

// CopyProcessID returns a copy of p, or nil if p is nil.
func CopyProcessID(p *ProcessId) *ProcessId {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Contains reports whether list holds a process with p's port.
func Contains(list []*ProcessId, p *ProcessId) bool {
	for _, q := range list {
		if ProcessIDEqual(q, p) {
			return true
		}
	}
	return false
}

// Remove returns list without the process matching p's port.
// The input slice is not modified.
func Remove(list []*ProcessId, p *ProcessId) []*ProcessId {
	out := make([]*ProcessId, 0, len(list))
	for _, q := range list {
		if !ProcessIDEqual(q, p) {
			out = append(out, q)
		}
	}
	return out
}

// Difference returns the processes of list that are not in exclude.
func Difference(list, exclude []*ProcessId) []*ProcessId {
	out := make([]*ProcessId, 0, len(list))
	for _, q := range list {
		if !Contains(exclude, q) {
			out = append(out, q)
		}
	}
	return out
}

// MinRank returns the process with the lowest rank, or nil for an empty list.
func MinRank(list []*ProcessId) *ProcessId {
	var min *ProcessId
	for _, p := range list {
		if min == nil || p.Rank < min.Rank {
			min = p
		}
	}
	return min
}

// MaxRank returns the process with the highest rank, or nil for an empty list.
func MaxRank(list []*ProcessId) *ProcessId {
	var max *ProcessId
	for _, p := range list {
		if max == nil || p.Rank > max.Rank {
			max = p
		}
	}
	return max
}

// FindByPort returns the process listening on port, or nil.
func FindByPort(list []*ProcessId, port int32) *ProcessId {
	for _, p := range list {
		if p.Port == port {
			return p
		}
	}
	return nil
}

// Quorum returns the minimum size of a quorum for a group of n processes.
// A quorum is any subset strictly larger than half the membership.
func Quorum(n int) int {
	return n/2 + 1
}
