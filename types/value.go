package types

import "fmt"

// Value is the unit of agreement. The zero Value is undefined and acts as
// the bottom element of the protocol: comparisons on "highest timestamp"
// ignore definedness, but a leader only adopts a read value when Defined
// is set.
type Value struct {
	Defined bool
	V       int64
}

// UndefinedValue returns the bottom value.
func UndefinedValue() *Value {
	return &Value{}
}

// CopyValue returns a copy of v. A nil input yields the undefined value.
func CopyValue(v *Value) *Value {
	if v == nil {
		return UndefinedValue()
	}
	c := *v
	return &c
}

// ValueEqual reports whether two values are the same, treating all
// undefined values as equal regardless of payload.
func ValueEqual(a, b *Value) bool {
	if a == nil {
		a = UndefinedValue()
	}
	if b == nil {
		b = UndefinedValue()
	}
	if !a.Defined && !b.Defined {
		return true
	}
	return a.Defined == b.Defined && a.V == b.V
}

// String returns "undef" for undefined values and the payload otherwise.
func (v *Value) String() string {
	if v == nil || !v.Defined {
		return "undef"
	}
	return fmt.Sprintf("%d", v.V)
}

// EpState is the (valueTimestamp, value) pair a process carries between
// epochs: the last value it accepted and the epoch timestamp it was
// accepted in. The initial state is (0, undefined).
type EpState struct {
	ValueTimestamp int32
	Value          *Value
}

// InitialEpState returns the state a process holds before any epoch
// has written to it.
func InitialEpState() *EpState {
	return &EpState{ValueTimestamp: 0, Value: UndefinedValue()}
}

// CopyEpState returns a deep copy of s. A nil input yields the initial state.
func CopyEpState(s *EpState) *EpState {
	if s == nil {
		return InitialEpState()
	}
	return &EpState{
		ValueTimestamp: s.ValueTimestamp,
		Value:          CopyValue(s.Value),
	}
}
