package activity

import (
	"github.com/arthur-debert/beout/pkg/errors"
	"github.com/arthur-debert/beout/pkg/status"
)

// Verify checks the structural and lifecycle invariants of the tree. A
// non-nil result means the engine has a bug.
func (t *Tree) Verify() error {
	root, ok := t.nodes[t.root]
	if !ok {
		return errors.New(errors.ErrInternal, "root missing")
	}
	if root.Parent != "" {
		return errors.New(errors.ErrInternal, "root has a parent")
	}

	seen := make(map[ID]bool, len(t.nodes))
	var walk func(a *Activity) error
	walk = func(a *Activity) error {
		if seen[a.ID] {
			return errors.Newf(errors.ErrInternal, "activity %q reached twice", a.ID)
		}
		seen[a.ID] = true
		if err := checkActivity(a, t.maxTail); err != nil {
			return err
		}
		for _, id := range a.Children {
			c, ok := t.nodes[id]
			if !ok {
				return errors.Newf(errors.ErrInternal, "child %q of %q missing", id, a.ID)
			}
			if c.Parent != a.ID {
				return errors.Newf(errors.ErrInternal, "child %q points at parent %q, not %q", id, c.Parent, a.ID)
			}
			if a.Status.IsTerminal() && !c.Status.IsTerminal() {
				return errors.Newf(errors.ErrInternal, "%q is %s under %s parent", c.ID, c.Status, a.Status)
			}
			if c.Status == status.Running && a.Status == status.Pending {
				return errors.Newf(errors.ErrInternal, "%q is running under a pending parent", c.ID)
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return err
	}
	if len(seen) != len(t.nodes) {
		return errors.Newf(errors.ErrInternal, "%d activities unreachable from root", len(t.nodes)-len(seen))
	}
	return nil
}

func checkActivity(a *Activity, maxTail int) error {
	if !a.Status.Valid() {
		return errors.Newf(errors.ErrInternal, "%q has invalid status %d", a.ID, a.Status)
	}
	if a.Started() != (a.Status != status.Pending) {
		return errors.Newf(errors.ErrInternal, "%q is %s with started_at=%v", a.ID, a.Status, a.StartedAt)
	}
	if a.Ended() != a.Status.IsTerminal() {
		return errors.Newf(errors.ErrInternal, "%q is %s with ended_at=%v", a.ID, a.Status, a.EndedAt)
	}
	if a.Ended() && a.EndedAt.Before(a.StartedAt) {
		return errors.Newf(errors.ErrInternal, "%q ended before it started", a.ID)
	}
	if len(a.LogTail) > maxTail {
		return errors.Newf(errors.ErrInternal, "%q holds %d log lines, bound is %d", a.ID, len(a.LogTail), maxTail)
	}
	return nil
}
