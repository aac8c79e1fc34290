// Package status defines the closed set of activity states and the legal
// transitions between them.
package status

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an activity. The zero value is Pending.
type Status uint8

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
	Skipped
)

// All lists every status in declaration order.
var All = []Status{Pending, Running, Succeeded, Failed, Skipped}

// String returns the lower-case name used in plain output and logs
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Parse parses a status name as produced by String
func Parse(s string) (Status, error) {
	for _, st := range All {
		if strings.EqualFold(s, st.String()) {
			return st, nil
		}
	}
	return Pending, fmt.Errorf("unknown status: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(b []byte) error {
	st, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == Succeeded || s == Failed || s == Skipped
}

// Valid reports whether s is one of the five declared states
func (s Status) Valid() bool {
	return s <= Skipped
}

// legal holds the caller-visible transitions. Anything else is rejected.
var legal = map[Status][]Status{
	Pending: {Running, Skipped, Failed},
	Running: {Succeeded, Failed, Skipped},
}

// CanTransition reports whether a caller may move an activity from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range legal[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Targets returns the statuses reachable from s, in table order.
func Targets(s Status) []Status {
	out := make([]Status, len(legal[s]))
	copy(out, legal[s])
	return out
}
