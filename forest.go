package testspan

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInconsistentState signals that the span registries disagree with each
// other. It is never returned to callers: the sink panics with an error
// wrapping it, since any report built past that point would be wrong.
var ErrInconsistentState = errors.New("testspan: inconsistent span state")

// NodeIndex addresses a node inside one span DAG.
type NodeIndex int

const noParent NodeIndex = -1

type node struct {
	children []NodeIndex
	id       SpanID
	parent   NodeIndex
}

// dag is an arena of span nodes anchored at a global root. Node 0 is the root.
// Node indexes grow with creation order, so children lists are creation ordered.
type dag struct {
	nodes []node
}

func newDAG(root SpanID) *dag {
	return &dag{nodes: []node{{id: root, parent: noParent}}}
}

func (d *dag) addChild(parent NodeIndex, id SpanID) NodeIndex {
	idx := NodeIndex(len(d.nodes))
	d.nodes = append(d.nodes, node{id: id, parent: parent})
	d.nodes[parent].children = append(d.nodes[parent].children, idx)
	return idx
}

func (d *dag) children(n NodeIndex) []NodeIndex {
	return d.nodes[n].children
}

func (d *dag) parent(n NodeIndex) (NodeIndex, bool) {
	p := d.nodes[n].parent
	return p, p != noParent
}

func (d *dag) clone() *dag {
	nodes := make([]node, len(d.nodes))
	for i, n := range d.nodes {
		nodes[i] = n
		if n.children != nil {
			nodes[i].children = append([]NodeIndex(nil), n.children...)
		}
	}
	return &dag{nodes: nodes}
}

// location places a span in the forest.
type location struct {
	root SpanID
	node NodeIndex
}

// forest holds one DAG per global root plus the id -> (root, node) index.
// Safe for concurrent use.
type forest struct {
	dags  map[SpanID]*dag
	index map[SpanID]location
	mu    sync.Mutex
}

func newForest() *forest {
	return &forest{
		dags:  make(map[SpanID]*dag),
		index: make(map[SpanID]location),
	}
}

// insert adds id under parent, or as a new root when parent is zero.
// It returns the global root the span now belongs to.
func (f *forest) insert(id, parent SpanID) (SpanID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.index[id]; exists {
		return 0, fmt.Errorf("%w: span %d inserted twice", ErrInconsistentState, id)
	}

	if parent == 0 {
		f.dags[id] = newDAG(id)
		f.index[id] = location{root: id, node: 0}
		return id, nil
	}

	loc, ok := f.index[parent]
	if !ok {
		return 0, fmt.Errorf("%w: parent span %d of span %d is unknown", ErrInconsistentState, parent, id)
	}
	d, ok := f.dags[loc.root]
	if !ok {
		return 0, fmt.Errorf("%w: no dag for root %d", ErrInconsistentState, loc.root)
	}
	f.index[id] = location{root: loc.root, node: d.addChild(loc.node, id)}
	return loc.root, nil
}

// locate returns where id lives.
func (f *forest) locate(id SpanID) (location, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.index[id]
	return loc, ok
}

// extraction is a point-in-time copy of the DAG containing a span.
type extraction struct {
	dag      *dag
	nodeToID map[NodeIndex]SpanID
	loc      location
}

// extract clones the DAG that contains id along with its membership.
func (f *forest) extract(id SpanID) (extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	loc, ok := f.index[id]
	if !ok {
		return extraction{}, fmt.Errorf("%w: couldn't find root node for span %d", ErrInconsistentState, id)
	}
	d, ok := f.dags[loc.root]
	if !ok {
		return extraction{}, fmt.Errorf("%w: no dag for root %d", ErrInconsistentState, loc.root)
	}

	nodeToID := make(map[NodeIndex]SpanID, len(d.nodes))
	for spanID, l := range f.index {
		if l.root == loc.root {
			nodeToID[l.node] = spanID
		}
	}

	return extraction{dag: d.clone(), nodeToID: nodeToID, loc: loc}, nil
}

// roots returns the number of DAGs.
func (f *forest) roots() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dags)
}

func (f *forest) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dags = make(map[SpanID]*dag)
	f.index = make(map[SpanID]location)
}
