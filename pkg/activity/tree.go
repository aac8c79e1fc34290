package activity

import (
	"fmt"
	"time"

	"github.com/arthur-debert/beout/pkg/errors"
	"github.com/arthur-debert/beout/pkg/status"
)

// Tree is a single rooted tree of activities.
type Tree struct {
	nodes   map[ID]*Activity
	root    ID
	maxTail int
	seq     int
	newID   func() ID
}

// Option configures a Tree
type Option func(*Tree)

// WithMaxTail bounds the per-activity log tail. Values below 1 are ignored.
func WithMaxTail(n int) Option {
	return func(t *Tree) {
		if n >= 1 {
			t.maxTail = n
		}
	}
}

// WithIDFunc replaces the identifier generator.
func WithIDFunc(f func() ID) Option {
	return func(t *Tree) {
		if f != nil {
			t.newID = f
		}
	}
}

// NewTree creates a tree holding only a pending root.
func NewTree(rootLabel string, rootAutoClose bool, opts ...Option) *Tree {
	t := &Tree{
		nodes:   make(map[ID]*Activity),
		maxTail: DefaultMaxTail,
		newID:   NewID,
	}
	for _, opt := range opts {
		opt(t)
	}
	root := t.newNode("", rootLabel, rootAutoClose)
	t.root = root.ID
	return t
}

func (t *Tree) newNode(parent ID, label string, autoClose bool) *Activity {
	a := &Activity{
		ID:        t.newID(),
		Label:     sanitize(label),
		Parent:    parent,
		AutoClose: autoClose,
		Seq:       t.seq,
	}
	t.seq++
	t.nodes[a.ID] = a
	return a
}

// Root returns the root activity id
func (t *Tree) Root() ID {
	return t.root
}

// Len returns the number of activities
func (t *Tree) Len() int {
	return len(t.nodes)
}

// MaxTail returns the configured log tail bound
func (t *Tree) MaxTail() int {
	return t.maxTail
}

// Get returns a copy of the activity with the given id
func (t *Tree) Get(id ID) (Activity, error) {
	a, err := t.lookup(id)
	if err != nil {
		return Activity{}, err
	}
	return a.clone(), nil
}

func (t *Tree) lookup(id ID) (*Activity, error) {
	a, ok := t.nodes[id]
	if !ok {
		return nil, errors.Newf(errors.ErrUnknownActivity, "no activity %q", id).
			WithDetail("id", string(id))
	}
	return a, nil
}

func invalidTransition(a *Activity, to status.Status) *errors.Error {
	return errors.Newf(errors.ErrInvalidTransition, "%q cannot go from %s to %s", a.Label, a.Status, to).
		WithDetail("id", string(a.ID)).
		WithDetail("from", a.Status.String()).
		WithDetail("to", to.String())
}

// AddChild appends a new pending child to parent.
func (t *Tree) AddChild(parent ID, label string, autoClose bool) (ID, error) {
	p, err := t.lookup(parent)
	if err != nil {
		return "", err
	}
	if p.Status.IsTerminal() {
		return "", errors.Newf(errors.ErrInvalidTransition, "%q is %s and cannot take new children", p.Label, p.Status).
			WithDetail("id", string(p.ID))
	}
	a := t.newNode(p.ID, label, autoClose)
	p.Children = append(p.Children, a.ID)
	return a.ID, nil
}

// SetStatus applies a caller-requested transition and every side effect it
// implies. On error the tree is left unchanged.
func (t *Tree) SetStatus(id ID, to status.Status, now time.Time) ([]Change, error) {
	a, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	if !status.CanTransition(a.Status, to) {
		return nil, invalidTransition(a, to)
	}
	var changes []Change
	t.transition(a, to, now, CauseExplicit, &changes)
	return changes, nil
}

// Fail moves the activity to failed and records reason.
func (t *Tree) Fail(id ID, reason string, now time.Time) ([]Change, error) {
	a, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	if !status.CanTransition(a.Status, status.Failed) {
		return nil, invalidTransition(a, status.Failed)
	}
	a.Reason = sanitize(reason)
	var changes []Change
	t.transition(a, status.Failed, now, CauseExplicit, &changes)
	return changes, nil
}

func (t *Tree) transition(a *Activity, to status.Status, now time.Time, cause Cause, changes *[]Change) {
	if to == status.Running {
		t.liftAncestors(a, now, changes)
	}
	t.set(a, to, now, cause, changes)
	if to.IsTerminal() {
		t.closeDescendants(a, to, now, changes)
		t.autoClose(a, now, changes)
	}
}

func (t *Tree) set(a *Activity, to status.Status, now time.Time, cause Cause, changes *[]Change) {
	from := a.Status
	a.Status = to
	if a.StartedAt.IsZero() {
		a.StartedAt = now
	}
	if to.IsTerminal() {
		a.EndedAt = now
		if a.EndedAt.Before(a.StartedAt) {
			a.EndedAt = a.StartedAt
		}
	}
	*changes = append(*changes, Change{
		ID:    a.ID,
		Label: a.Label,
		From:  from,
		To:    to,
		At:    now,
		Cause: cause,
	})
}

// liftAncestors moves pending ancestors to running, outermost first.
func (t *Tree) liftAncestors(a *Activity, now time.Time, changes *[]Change) {
	var pending []*Activity
	for id := a.Parent; id != ""; {
		p := t.nodes[id]
		if p.Status == status.Pending {
			pending = append(pending, p)
		}
		id = p.Parent
	}
	for i := len(pending) - 1; i >= 0; i-- {
		t.set(pending[i], status.Running, now, CauseImplicit, changes)
	}
}

// closeDescendants forces every open descendant of a into a terminal status
// in pre-order, sharing a's end instant.
func (t *Tree) closeDescendants(a *Activity, to status.Status, now time.Time, changes *[]Change) {
	t.walkFrom(a, 0, func(d *Activity, depth int) {
		if depth == 0 || d.Status.IsTerminal() {
			return
		}
		t.set(d, propagatedStatus(d.Status, to), now, CausePropagated, changes)
	})
}

// propagatedStatus picks the status an open descendant takes when an
// ancestor ends with to.
func propagatedStatus(current, to status.Status) status.Status {
	switch to {
	case status.Failed:
		return status.Failed
	case status.Skipped:
		return status.Skipped
	default:
		if current == status.Running {
			return status.Succeeded
		}
		return status.Skipped
	}
}

// autoClose ends a's parent when it asked for it and a was its last open child.
func (t *Tree) autoClose(a *Activity, now time.Time, changes *[]Change) {
	if a.Parent == "" {
		return
	}
	p := t.nodes[a.Parent]
	if !p.AutoClose || p.Status.IsTerminal() {
		return
	}
	result := status.Succeeded
	for _, id := range p.Children {
		c := t.nodes[id]
		if !c.Status.IsTerminal() {
			return
		}
		if c.Status == status.Failed {
			result = status.Failed
		}
	}
	t.transition(p, result, now, CauseAutoClose, changes)
}

// ForceTerminal closes every open activity with to, in pre-order. It is the
// session-end path and bypasses the caller transition table.
func (t *Tree) ForceTerminal(to status.Status, now time.Time) []Change {
	if !to.IsTerminal() {
		panic(fmt.Sprintf("activity: ForceTerminal with non-terminal status %s", to))
	}
	var changes []Change
	t.walkFrom(t.nodes[t.root], 0, func(a *Activity, _ int) {
		if !a.Status.IsTerminal() {
			t.set(a, to, now, CauseForced, &changes)
		}
	})
	return changes
}

// SetDetail replaces the transient detail text. An empty string clears it.
func (t *Tree) SetDetail(id ID, text string) error {
	a, err := t.lookup(id)
	if err != nil {
		return err
	}
	a.Detail = sanitize(text)
	return nil
}

// SetSubsteps turns "(i/n)" numbering of an activity's children on or off.
func (t *Tree) SetSubsteps(id ID, on bool) error {
	a, err := t.lookup(id)
	if err != nil {
		return err
	}
	a.Substeps = on
	return nil
}

// SetEstimate records the expected duration of an activity.
func (t *Tree) SetEstimate(id ID, d time.Duration) error {
	a, err := t.lookup(id)
	if err != nil {
		return err
	}
	if d < 0 {
		return errors.Newf(errors.ErrInvalidInput, "negative estimate %s", d)
	}
	a.Estimate = d
	return nil
}

// AppendLog adds one or more lines to the activity's tail, dropping the
// oldest entries beyond the bound. It returns the entries that were added.
func (t *Tree) AppendLog(id ID, line string) ([]string, error) {
	a, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	lines := splitLines(line)
	a.LogTail = append(a.LogTail, lines...)
	if over := len(a.LogTail) - t.maxTail; over > 0 {
		a.LogTail = append([]string(nil), a.LogTail[over:]...)
	}
	return lines, nil
}

// AnyRunning reports whether some activity is running
func (t *Tree) AnyRunning() bool {
	for _, a := range t.nodes {
		if a.Status == status.Running {
			return true
		}
	}
	return false
}

// Done reports whether every activity is terminal
func (t *Tree) Done() bool {
	return t.nodes[t.root].Status.IsTerminal()
}

// Walk visits every activity in pre-order, children in creation order.
func (t *Tree) Walk(fn func(a Activity, depth int)) {
	t.walkFrom(t.nodes[t.root], 0, func(a *Activity, depth int) {
		fn(a.clone(), depth)
	})
}

func (t *Tree) walkFrom(a *Activity, depth int, fn func(a *Activity, depth int)) {
	fn(a, depth)
	for _, id := range a.Children {
		t.walkFrom(t.nodes[id], depth+1, fn)
	}
}
