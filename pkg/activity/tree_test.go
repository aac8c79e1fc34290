package activity_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/beout/pkg/activity"
	"github.com/arthur-debert/beout/pkg/errors"
	"github.com/arthur-debert/beout/pkg/status"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func get(t *testing.T, tree *activity.Tree, id activity.ID) activity.Activity {
	t.Helper()
	a, err := tree.Get(id)
	require.NoError(t, err)
	return a
}

func TestNewTree(t *testing.T) {
	tree := activity.NewTree("Build", true)

	root := get(t, tree, tree.Root())
	assert.Equal(t, "Build", root.Label)
	assert.Equal(t, status.Pending, root.Status)
	assert.True(t, root.IsRoot())
	assert.False(t, root.Started())
	assert.Equal(t, 1, tree.Len())
	assert.NoError(t, tree.Verify())
}

func TestAddChild(t *testing.T) {
	tree := activity.NewTree("Build", true)

	a, err := tree.AddChild(tree.Root(), "compile", true)
	require.NoError(t, err)
	b, err := tree.AddChild(tree.Root(), "link", false)
	require.NoError(t, err)

	root := get(t, tree, tree.Root())
	assert.Equal(t, []activity.ID{a, b}, root.Children)
	assert.Equal(t, tree.Root(), get(t, tree, a).Parent)
	assert.False(t, get(t, tree, b).AutoClose)

	_, err = tree.AddChild("nope", "x", true)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownActivity))
}

func TestAddChildToTerminalParent(t *testing.T) {
	tree := activity.NewTree("Build", false)
	_, err := tree.SetStatus(tree.Root(), status.Skipped, at(0))
	require.NoError(t, err)

	_, err = tree.AddChild(tree.Root(), "late", true)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidTransition))
	assert.Equal(t, 1, tree.Len())
}

func TestExplicitTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []status.Status
		wantErr bool
	}{
		{"start then succeed", []status.Status{status.Running, status.Succeeded}, false},
		{"start then fail", []status.Status{status.Running, status.Failed}, false},
		{"start then skip", []status.Status{status.Running, status.Skipped}, false},
		{"skip pending", []status.Status{status.Skipped}, false},
		{"fail pending", []status.Status{status.Failed}, false},
		{"succeed pending", []status.Status{status.Succeeded}, true},
		{"start twice", []status.Status{status.Running, status.Running}, true},
		{"leave terminal", []status.Status{status.Skipped, status.Running}, true},
		{"back to pending", []status.Status{status.Running, status.Pending}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := activity.NewTree("root", false)
			id, err := tree.AddChild(tree.Root(), "step", false)
			require.NoError(t, err)

			var last error
			for i, st := range tt.path {
				before := get(t, tree, id)
				_, last = tree.SetStatus(id, st, at(i+1))
				if last != nil {
					assert.Equal(t, before, get(t, tree, id), "tree must be unchanged on error")
					break
				}
			}
			if tt.wantErr {
				assert.True(t, errors.IsErrorCode(last, errors.ErrInvalidTransition), "got %v", last)
			} else {
				assert.NoError(t, last)
			}
			assert.NoError(t, tree.Verify())
		})
	}
}

func TestTimestamps(t *testing.T) {
	tree := activity.NewTree("root", false)
	a, _ := tree.AddChild(tree.Root(), "a", false)
	b, _ := tree.AddChild(tree.Root(), "b", false)

	_, err := tree.SetStatus(a, status.Running, at(1))
	require.NoError(t, err)
	_, err = tree.SetStatus(a, status.Succeeded, at(4))
	require.NoError(t, err)
	_, err = tree.SetStatus(b, status.Skipped, at(5))
	require.NoError(t, err)

	got := get(t, tree, a)
	assert.Equal(t, at(1), got.StartedAt)
	assert.Equal(t, at(4), got.EndedAt)
	d, ok := got.Elapsed(at(100))
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	skipped := get(t, tree, b)
	assert.Equal(t, at(5), skipped.StartedAt)
	assert.Equal(t, at(5), skipped.EndedAt)
}

func TestImplicitRunning(t *testing.T) {
	tree := activity.NewTree("root", false)
	mid, _ := tree.AddChild(tree.Root(), "mid", false)
	leaf, _ := tree.AddChild(mid, "leaf", false)

	changes, err := tree.SetStatus(leaf, status.Running, at(2))
	require.NoError(t, err)

	require.Len(t, changes, 3)
	assert.Equal(t, tree.Root(), changes[0].ID, "outermost ancestor first")
	assert.Equal(t, activity.CauseImplicit, changes[0].Cause)
	assert.Equal(t, mid, changes[1].ID)
	assert.Equal(t, leaf, changes[2].ID)
	assert.Equal(t, activity.CauseExplicit, changes[2].Cause)

	for _, id := range []activity.ID{tree.Root(), mid, leaf} {
		a := get(t, tree, id)
		assert.Equal(t, status.Running, a.Status)
		assert.Equal(t, at(2), a.StartedAt)
	}
}

func TestFailurePropagatesDown(t *testing.T) {
	tree := activity.NewTree("root", false)
	p, _ := tree.AddChild(tree.Root(), "p", false)
	c1, _ := tree.AddChild(p, "c1", false)
	g1, _ := tree.AddChild(c1, "g1", false)
	c2, _ := tree.AddChild(p, "c2", false)
	done, _ := tree.AddChild(p, "done", false)

	_, err := tree.SetStatus(c1, status.Running, at(1))
	require.NoError(t, err)
	_, err = tree.SetStatus(done, status.Skipped, at(2))
	require.NoError(t, err)

	changes, err := tree.Fail(p, "boom", at(5))
	require.NoError(t, err)

	var order []activity.ID
	for _, c := range changes {
		order = append(order, c.ID)
	}
	assert.Equal(t, []activity.ID{p, c1, g1, c2}, order, "pre-order by creation index")

	for _, id := range []activity.ID{p, c1, g1, c2} {
		a := get(t, tree, id)
		assert.Equal(t, status.Failed, a.Status, a.Label)
		assert.Equal(t, at(5), a.EndedAt, a.Label)
	}
	assert.Equal(t, status.Skipped, get(t, tree, done).Status)
	assert.Equal(t, at(1), get(t, tree, c1).StartedAt)
	assert.Equal(t, at(5), get(t, tree, g1).StartedAt)
	assert.Equal(t, "boom", get(t, tree, p).Reason)
	assert.NoError(t, tree.Verify())
}

func TestSuccessAndSkipCloseDescendants(t *testing.T) {
	tests := []struct {
		name        string
		parentEnd   status.Status
		wantRunning status.Status
		wantPending status.Status
	}{
		{"succeeded parent", status.Succeeded, status.Succeeded, status.Skipped},
		{"skipped parent", status.Skipped, status.Skipped, status.Skipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := activity.NewTree("root", false)
			p, _ := tree.AddChild(tree.Root(), "p", false)
			run, _ := tree.AddChild(p, "run", false)
			wait, _ := tree.AddChild(p, "wait", false)
			_, err := tree.SetStatus(run, status.Running, at(1))
			require.NoError(t, err)

			_, err = tree.SetStatus(p, tt.parentEnd, at(3))
			require.NoError(t, err)

			assert.Equal(t, tt.wantRunning, get(t, tree, run).Status)
			assert.Equal(t, tt.wantPending, get(t, tree, wait).Status)
			assert.NoError(t, tree.Verify())
		})
	}
}

func TestAutoClose(t *testing.T) {
	t.Run("all succeeded or skipped", func(t *testing.T) {
		tree := activity.NewTree("Build", true)
		a, _ := tree.AddChild(tree.Root(), "compile", true)
		b, _ := tree.AddChild(tree.Root(), "docs", true)

		_, err := tree.SetStatus(a, status.Running, at(1))
		require.NoError(t, err)
		_, err = tree.SetStatus(a, status.Succeeded, at(2))
		require.NoError(t, err)
		assert.Equal(t, status.Running, get(t, tree, tree.Root()).Status, "docs still open")

		changes, err := tree.SetStatus(b, status.Skipped, at(3))
		require.NoError(t, err)
		require.Len(t, changes, 2)
		assert.Equal(t, activity.CauseAutoClose, changes[1].Cause)

		root := get(t, tree, tree.Root())
		assert.Equal(t, status.Succeeded, root.Status)
		assert.Equal(t, at(3), root.EndedAt)
	})

	t.Run("any failed", func(t *testing.T) {
		tree := activity.NewTree("Build", true)
		a, _ := tree.AddChild(tree.Root(), "compile", true)
		b, _ := tree.AddChild(tree.Root(), "link", true)
		_, _ = tree.SetStatus(a, status.Running, at(1))
		_, _ = tree.Fail(a, "", at(2))
		assert.Equal(t, status.Running, get(t, tree, tree.Root()).Status)

		_, err := tree.SetStatus(b, status.Skipped, at(3))
		require.NoError(t, err)
		assert.Equal(t, status.Failed, get(t, tree, tree.Root()).Status)
	})

	t.Run("disabled", func(t *testing.T) {
		tree := activity.NewTree("root", false)
		prep, _ := tree.AddChild(tree.Root(), "prep", true)
		_, _ = tree.SetStatus(tree.Root(), status.Running, at(0))
		_, _ = tree.SetStatus(prep, status.Running, at(1))
		_, err := tree.SetStatus(prep, status.Succeeded, at(2))
		require.NoError(t, err)

		assert.Equal(t, status.Running, get(t, tree, tree.Root()).Status)
		assert.True(t, tree.AnyRunning())
	})
}

func TestFailureBubblesThroughAutoClose(t *testing.T) {
	tree := activity.NewTree("Deploy", true)
	push, _ := tree.AddChild(tree.Root(), "push", true)
	upload, _ := tree.AddChild(push, "upload", true)

	_, err := tree.Fail(upload, "", at(7))
	require.NoError(t, err)

	for _, id := range []activity.ID{upload, push, tree.Root()} {
		a := get(t, tree, id)
		assert.Equal(t, status.Failed, a.Status, a.Label)
		assert.Equal(t, at(7), a.EndedAt, a.Label)
	}
	assert.True(t, tree.Done())
	assert.NoError(t, tree.Verify())
}

func TestRoundTripAutoCloseChain(t *testing.T) {
	tree := activity.NewTree("root", true)
	mid, _ := tree.AddChild(tree.Root(), "mid", true)
	leaf, _ := tree.AddChild(mid, "leaf", true)

	_, err := tree.SetStatus(leaf, status.Running, at(1))
	require.NoError(t, err)
	_, err = tree.SetStatus(leaf, status.Succeeded, at(4))
	require.NoError(t, err)

	chain := []activity.ID{leaf, mid, tree.Root()}
	for _, id := range chain {
		assert.Equal(t, status.Succeeded, get(t, tree, id).Status)
	}
	for _, a := range chain {
		for _, b := range chain {
			assert.False(t, get(t, tree, b).EndedAt.Before(get(t, tree, a).StartedAt))
		}
	}
}

func TestForceTerminal(t *testing.T) {
	tree := activity.NewTree("root", false)
	a, _ := tree.AddChild(tree.Root(), "a", false)
	b, _ := tree.AddChild(tree.Root(), "b", false)
	_, _ = tree.SetStatus(a, status.Running, at(1))

	changes := tree.ForceTerminal(status.Succeeded, at(9))
	assert.Len(t, changes, 3)
	for _, c := range changes {
		assert.Equal(t, activity.CauseForced, c.Cause)
	}
	assert.Equal(t, status.Succeeded, get(t, tree, b).Status)
	assert.True(t, tree.Done())
	assert.NoError(t, tree.Verify())

	assert.Empty(t, tree.ForceTerminal(status.Failed, at(10)), "idempotent once closed")
	assert.Panics(t, func() { tree.ForceTerminal(status.Running, at(11)) })
}

func TestAppendLog(t *testing.T) {
	tree := activity.NewTree("root", false)
	for i := 1; i <= 10; i++ {
		_, err := tree.AppendLog(tree.Root(), fmt.Sprintf("line %d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"line 6", "line 7", "line 8", "line 9", "line 10"}, get(t, tree, tree.Root()).LogTail)

	added, err := tree.AppendLog(tree.Root(), "a\nb\r\n\x1b[31mred\x1b[0m\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "red"}, added)

	_, err = tree.AppendLog("missing", "x")
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownActivity))
}

func TestMaxTailOption(t *testing.T) {
	tree := activity.NewTree("root", false, activity.WithMaxTail(2), activity.WithMaxTail(0))
	assert.Equal(t, 2, tree.MaxTail())
	_, _ = tree.AppendLog(tree.Root(), "1\n2\n3")
	assert.Equal(t, []string{"2", "3"}, get(t, tree, tree.Root()).LogTail)
}

func TestSanitizedText(t *testing.T) {
	tree := activity.NewTree("multi\nline\x1b[2K", false)
	assert.Equal(t, "multi line", get(t, tree, tree.Root()).Label)

	require.NoError(t, tree.SetDetail(tree.Root(), "50%\rdone\n"))
	assert.Equal(t, "50% done", get(t, tree, tree.Root()).Detail)

	require.NoError(t, tree.SetDetail(tree.Root(), ""))
	assert.Empty(t, get(t, tree, tree.Root()).Detail)
}

func TestSetEstimate(t *testing.T) {
	tree := activity.NewTree("root", false)
	require.NoError(t, tree.SetEstimate(tree.Root(), time.Minute))
	assert.Equal(t, time.Minute, get(t, tree, tree.Root()).Estimate)
	assert.Error(t, tree.SetEstimate(tree.Root(), -time.Second))
}

func TestSnapshotIsDetached(t *testing.T) {
	tree := activity.NewTree("root", false)
	a, _ := tree.AddChild(tree.Root(), "a", false)
	_, _ = tree.AddChild(a, "a1", false)
	_, _ = tree.AppendLog(a, "first")

	snap := tree.Snapshot(at(1))
	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{snap.Nodes[0].Depth, snap.Nodes[1].Depth, snap.Nodes[2].Depth})

	_, _ = tree.AppendLog(a, "second")
	_, _ = tree.AddChild(a, "a2", false)

	n, ok := snap.Find(a)
	require.True(t, ok)
	assert.Equal(t, []string{"first"}, n.LogTail)
	assert.Len(t, n.Children, 1)
	assert.Equal(t, 3, snap.Counts()[status.Pending])
}

func TestSnapshotSubstepPositions(t *testing.T) {
	tree := activity.NewTree("root", false)
	a, _ := tree.AddChild(tree.Root(), "a", false)
	b, _ := tree.AddChild(tree.Root(), "b", false)
	a1, _ := tree.AddChild(a, "a1", false)
	require.NoError(t, tree.SetSubsteps(tree.Root(), true))

	snap := tree.Snapshot(at(1))
	na, _ := snap.Find(a)
	nb, _ := snap.Find(b)
	na1, _ := snap.Find(a1)
	assert.Equal(t, [2]int{1, 2}, [2]int{na.Position, na.Siblings})
	assert.Equal(t, [2]int{2, 2}, [2]int{nb.Position, nb.Siblings})
	assert.Zero(t, na1.Siblings)
	assert.Zero(t, snap.Root().Siblings)

	_, _ = tree.AddChild(tree.Root(), "c", false)
	nb, _ = tree.Snapshot(at(2)).Find(b)
	assert.Equal(t, 3, nb.Siblings, "the count follows the children added so far")

	err := tree.SetSubsteps("missing", true)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownActivity))
}

// TestRandomMutationsKeepInvariants applies long random mutation sequences and
// checks the tree after every step.
func TestRandomMutationsKeepInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		tree := activity.NewTree("root", rng.Intn(2) == 0, activity.WithMaxTail(3))
		ids := []activity.ID{tree.Root()}
		now := t0

		for step := 0; step < 200; step++ {
			now = now.Add(time.Duration(rng.Intn(1500)) * time.Millisecond)
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(6) {
			case 0, 1:
				if child, err := tree.AddChild(id, fmt.Sprintf("n%d", step), rng.Intn(2) == 0); err == nil {
					ids = append(ids, child)
				}
			case 2:
				_, _ = tree.SetStatus(id, status.All[rng.Intn(len(status.All))], now)
			case 3:
				_, _ = tree.Fail(id, "random", now)
			case 4:
				_, _ = tree.AppendLog(id, "log")
			case 5:
				_ = tree.SetDetail(id, "detail")
			}
			require.NoError(t, tree.Verify(), "seed %d step %d", seed, step)

			snap := tree.Snapshot(now)
			require.Len(t, snap.Nodes, tree.Len())
			for _, n := range snap.Nodes {
				if n.Status == status.Failed {
					for _, c := range n.Children {
						cn, _ := snap.Find(c)
						require.True(t, cn.Status.IsTerminal(), "seed %d: child of failed %s open", seed, n.Label)
					}
				}
			}
		}
	}
}
