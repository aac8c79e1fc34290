// Package activity holds the tree of activities shown by a display session
// and the mutations that move it through its lifecycle.
//
// A Tree is a plain value with no locking and no I/O. The display engine owns
// one per session and serialises every call; tests drive it directly with
// explicit timestamps.
package activity

import (
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"

	"github.com/arthur-debert/beout/pkg/status"
)

// DefaultMaxTail is the default number of log lines kept per activity.
const DefaultMaxTail = 5

// ID identifies an activity within one session.
type ID string

// NewID returns a fresh opaque identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// Activity is one node of the tree.
type Activity struct {
	ID        ID
	Label     string
	Status    status.Status
	StartedAt time.Time
	EndedAt   time.Time
	Children  []ID
	Parent    ID
	LogTail   []string
	Detail    string
	Reason    string
	AutoClose bool
	// Substeps numbers the children as "(i/n)" when rendered
	Substeps bool
	Estimate time.Duration
	Seq      int
}

// Started reports whether started_at is set
func (a Activity) Started() bool {
	return !a.StartedAt.IsZero()
}

// Ended reports whether ended_at is set
func (a Activity) Ended() bool {
	return !a.EndedAt.IsZero()
}

// IsRoot reports whether the activity has no parent
func (a Activity) IsRoot() bool {
	return a.Parent == ""
}

// Elapsed returns the running time of the activity. Terminal activities
// report the fixed ended_at - started_at; running ones measure against now.
// The boolean is false when the activity never started.
func (a Activity) Elapsed(now time.Time) (time.Duration, bool) {
	if !a.Started() {
		return 0, false
	}
	end := now
	if a.Ended() {
		end = a.EndedAt
	}
	d := end.Sub(a.StartedAt)
	if d < 0 {
		d = 0
	}
	return d, true
}

func (a *Activity) clone() Activity {
	c := *a
	c.Children = append([]ID(nil), a.Children...)
	c.LogTail = append([]string(nil), a.LogTail...)
	return c
}

// Cause explains why a status change happened.
type Cause uint8

const (
	// CauseExplicit is a change requested by the caller.
	CauseExplicit Cause = iota
	// CauseImplicit lifts a pending ancestor when a descendant starts.
	CauseImplicit
	// CausePropagated closes descendants of an activity that ended.
	CausePropagated
	// CauseAutoClose closes a parent whose last open child ended.
	CauseAutoClose
	// CauseForced closes whatever is still open when a session ends.
	CauseForced
)

func (c Cause) String() string {
	switch c {
	case CauseExplicit:
		return "explicit"
	case CauseImplicit:
		return "implicit"
	case CausePropagated:
		return "propagated"
	case CauseAutoClose:
		return "auto-close"
	case CauseForced:
		return "forced"
	default:
		return "unknown"
	}
}

// Change records one status transition applied to the tree.
type Change struct {
	ID    ID
	Label string
	From  status.Status
	To    status.Status
	At    time.Time
	Cause Cause
}

// sanitize removes escape sequences and line breaks so a string always fits
// on one rendered row.
func sanitize(s string) string {
	s = ansi.Strip(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
	return strings.TrimRight(s, " ")
}

// splitLines breaks raw log output into sanitised tail entries. A trailing
// newline does not produce an empty entry.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		// carriage-return overwrites keep only the last segment
		if i := strings.LastIndexByte(p, '\r'); i >= 0 {
			p = p[i+1:]
		}
		out = append(out, sanitize(p))
	}
	return out
}
