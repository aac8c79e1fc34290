package activity

import (
	"slices"
	"time"

	"github.com/arthur-debert/beout/pkg/status"
)

// Node is an activity as seen in a snapshot, with its depth in the tree.
// Position and Siblings are set only when the parent numbers its substeps.
type Node struct {
	Activity
	Depth    int
	Position int
	Siblings int
}

// Snapshot is an immutable pre-order view of the tree taken at Now.
type Snapshot struct {
	Now     time.Time
	Nodes   []Node
	MaxTail int
}

// Snapshot copies the tree for rendering.
func (t *Tree) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Now:     now,
		Nodes:   make([]Node, 0, len(t.nodes)),
		MaxTail: t.maxTail,
	}
	t.walkFrom(t.nodes[t.root], 0, func(a *Activity, depth int) {
		n := Node{Activity: a.clone(), Depth: depth}
		if p, ok := t.nodes[a.Parent]; ok && p.Substeps {
			n.Position = slices.Index(p.Children, a.ID) + 1
			n.Siblings = len(p.Children)
		}
		s.Nodes = append(s.Nodes, n)
	})
	return s
}

// Root returns the root node
func (s Snapshot) Root() Node {
	if len(s.Nodes) == 0 {
		return Node{}
	}
	return s.Nodes[0]
}

// Find returns the node with the given id
func (s Snapshot) Find(id ID) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// AnyRunning reports whether some node is running
func (s Snapshot) AnyRunning() bool {
	for _, n := range s.Nodes {
		if n.Status == status.Running {
			return true
		}
	}
	return false
}

// Counts tallies nodes per status
func (s Snapshot) Counts() map[status.Status]int {
	counts := make(map[status.Status]int, len(status.All))
	for _, n := range s.Nodes {
		counts[n.Status]++
	}
	return counts
}
