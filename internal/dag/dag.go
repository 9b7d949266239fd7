// Package dag converts circuits into a qubit-wise dependency graph that rules
// rewrite in place, and flattens the graph back into a circuit.
//
// Every qubit and every classical bit is a doubly linked line of nodes.
// Line q < NumQubits is qubit q; line NumQubits+b is classical bit b, walked
// by measurements writing b and by gates conditioned on it. A node touching
// several lines sits on all of them at once, so the edges of the DAG are
// exactly the per-line predecessor/successor links.
package dag

import (
	"container/heap"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/pkg/errors"

	"qrewrite/internal/circuit"
)

// Node represents a gate instruction in the DAG. Its gate is fixed at
// creation; rules only ever touch the tags.
type Node struct {
	ID    int // creation sequence, unique within a DAG
	gate  circuit.Gate
	lines []int // qubit lines, then classical lines
	tags  map[string]string

	prev map[int]*Node // predecessor per line, nil at the line head
	next map[int]*Node // successor per line, nil at the line tail
	dag  *DAG          // owner, nil once removed
}

// Gate returns a copy of the node's gate.
func (n *Node) Gate() circuit.Gate {
	return n.gate.Clone()
}

// Type returns the gate type.
func (n *Node) Type() string { return n.gate.Type }

// Qubits returns the qubits the node touches, targets first.
func (n *Node) Qubits() []int { return n.gate.Qubits() }

// Lines returns every line the node sits on: its qubits, then the lines of
// the classical bits it measures into or is conditioned on.
func (n *Node) Lines() []int { return slices.Clone(n.lines) }

// Tag returns the value of a rule metadata tag.
func (n *Node) Tag(key string) (string, bool) {
	v, ok := n.tags[key]
	return v, ok
}

// SetTag records rule metadata on the node.
func (n *Node) SetTag(key, value string) {
	if n.tags == nil {
		n.tags = make(map[string]string)
	}
	n.tags[key] = value
}

// Tags returns a copy of the node's tags.
func (n *Node) Tags() map[string]string {
	return maps.Clone(n.tags)
}

// String formats the node as "#3 CX q[1] ctrl q[0]".
func (n *Node) String() string {
	return fmt.Sprintf("#%d %s", n.ID, n.gate)
}

// DAG is a mutable dependency graph over gate nodes.
type DAG struct {
	numQubits int
	numCbits  int
	cregs     []circuit.Register
	nodes     map[int]*Node
	heads     []*Node // first node on each line
	tails     []*Node // frontier: most recently appended node on each line
	nextID    int
}

// New creates an empty DAG over numQubits qubit lines and numCbits
// classical bit lines.
func New(numQubits, numCbits int) *DAG {
	return &DAG{
		numQubits: numQubits,
		numCbits:  numCbits,
		nodes:     make(map[int]*Node),
		heads:     make([]*Node, numQubits+numCbits),
		tails:     make([]*Node, numQubits+numCbits),
	}
}

// Build converts a circuit into a DAG. Gates are appended in program order,
// each wired after the current frontier on every qubit it touches.
// Malformed input yields an InvalidCircuitError and no DAG.
func Build(c *circuit.Circuit) (*DAG, error) {
	if c == nil {
		return nil, &InvalidCircuitError{Index: -1, Err: errors.Errorf("nil circuit")}
	}
	if c.NumQubits < 0 {
		return nil, &InvalidCircuitError{Index: -1, Err: errors.Errorf("negative qubit count %d", c.NumQubits)}
	}
	for _, r := range c.Cregs {
		if r.Size <= 0 {
			return nil, &InvalidCircuitError{Index: -1, Err: errors.Errorf("creg %q: size %d must be positive", r.Name, r.Size)}
		}
	}
	for i, g := range c.Gates {
		if err := g.Validate(c.NumQubits); err != nil {
			return nil, &InvalidCircuitError{Index: i, Gate: g.Clone(), Err: err}
		}
	}

	d := New(c.NumQubits, c.NumCbits())
	d.cregs = slices.Clone(c.Cregs)
	for _, g := range c.Gates {
		d.append(g)
	}
	return d, nil
}

// NumQubits returns the number of qubit lines.
func (d *DAG) NumQubits() int { return d.numQubits }

// NumCbits returns the number of classical bit lines.
func (d *DAG) NumCbits() int { return d.numCbits }

// NumLines returns the number of qubit and classical bit lines.
func (d *DAG) NumLines() int { return d.numQubits + d.numCbits }

// ClassicalLine returns the line index of classical bit b.
func (d *DAG) ClassicalLine(b int) int { return d.numQubits + b }

// lineName formats a line as "q[3]" or "c[0]".
func (d *DAG) lineName(line int) string {
	if line < d.numQubits {
		return fmt.Sprintf("q[%d]", line)
	}
	return fmt.Sprintf("c[%d]", line-d.numQubits)
}

// validate checks g against the qubit and classical bit lines of d.
func (d *DAG) validate(g circuit.Gate) error {
	if err := g.Validate(d.numQubits); err != nil {
		return err
	}
	for _, b := range g.ClassicalBits() {
		if b >= d.numCbits {
			return errors.Errorf("%s: classical bit %d out of range [0, %d)", g.Type, b, d.numCbits)
		}
	}
	return nil
}

// linesOf returns the lines g sits on: qubits, then classical bits.
func (d *DAG) linesOf(g circuit.Gate) []int {
	lines := g.Qubits()
	for _, b := range g.ClassicalBits() {
		lines = append(lines, d.ClassicalLine(b))
	}
	return lines
}
// Len returns the number of nodes.
func (d *DAG) Len() int { return len(d.nodes) }

// Append adds a gate after the frontier of every line it touches.
func (d *DAG) Append(g circuit.Gate) (*Node, error) {
	if err := d.validate(g); err != nil {
		return nil, &InvalidCircuitError{Index: -1, Gate: g.Clone(), Err: err}
	}
	return d.append(g), nil
}

func (d *DAG) append(g circuit.Gate) *Node {
	n := d.newNode(g)
	for _, l := range n.lines {
		d.link(d.tails[l], n, nil, l)
	}
	return n
}

func (d *DAG) newNode(g circuit.Gate) *Node {
	n := &Node{
		ID:    d.nextID,
		gate:  g.Clone(),
		lines: d.linesOf(g),
		prev:  make(map[int]*Node),
		next:  make(map[int]*Node),
		dag:   d,
	}
	d.nextID++
	d.nodes[n.ID] = n
	return n
}

// link places n between p and s on line q. A nil p means the line head,
// a nil s means the line tail.
func (d *DAG) link(p, n, s *Node, q int) {
	n.prev[q] = p
	n.next[q] = s
	if p != nil {
		p.next[q] = n
	} else {
		d.heads[q] = n
	}
	if s != nil {
		s.prev[q] = n
	} else {
		d.tails[q] = n
	}
}

// Frontier returns the most recently appended node on line q, or nil if
// the line is empty.
func (d *DAG) Frontier(q int) *Node {
	if q < 0 || q >= d.NumLines() {
		return nil
	}
	return d.tails[q]
}

// Head returns the first node on line q, or nil if the line is empty.
func (d *DAG) Head(q int) *Node {
	if q < 0 || q >= d.NumLines() {
		return nil
	}
	return d.heads[q]
}

// Next returns the successor of n on line q, or nil.
func (d *DAG) Next(n *Node, q int) *Node { return n.next[q] }

// Prev returns the predecessor of n on line q, or nil.
func (d *DAG) Prev(n *Node, q int) *Node { return n.prev[q] }

// Contains reports whether n is currently part of d.
func (d *DAG) Contains(n *Node) bool {
	return n != nil && n.dag == d
}

// Node returns the node with the given ID, or nil.
func (d *DAG) Node(id int) *Node { return d.nodes[id] }

// Nodes returns every node in creation order.
func (d *DAG) Nodes() []*Node {
	out := slices.Collect(maps.Values(d.nodes))
	slices.SortFunc(out, func(a, b *Node) int { return a.ID - b.ID })
	return out
}

// Line iterates the nodes on line q in order.
func (d *DAG) Line(q int) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := d.Head(q); n != nil; n = n.next[q] {
			if !yield(n) {
				return
			}
		}
	}
}

// QubitOrder returns the node IDs on line q in order.
func (d *DAG) QubitOrder(q int) []int {
	var ids []int
	for n := range d.Line(q) {
		ids = append(ids, n.ID)
	}
	return ids
}

// Remove excises n, joining its predecessor and successor on every line it
// sat on.
func (d *DAG) Remove(n *Node) error {
	if !d.Contains(n) {
		return violation("remove", n, "node is not part of this DAG")
	}
	for _, q := range n.lines {
		p, s := n.prev[q], n.next[q]
		if p != nil {
			p.next[q] = s
		} else {
			d.heads[q] = s
		}
		if s != nil {
			s.prev[q] = p
		} else {
			d.tails[q] = p
		}
	}
	d.detach(n)
	return nil
}

func (d *DAG) detach(n *Node) {
	delete(d.nodes, n.ID)
	clear(n.prev)
	clear(n.next)
	n.dag = nil
}

// Replace splices gates into the position of n, in order, and removes n.
// The new gates may only touch lines n sat on, qubits and classical bits
// alike; anything else would let a rewrite reorder operations on an
// unrelated line. An empty gate list is equivalent to Remove. The new nodes
// are returned in gate order.
func (d *DAG) Replace(n *Node, gates []circuit.Gate) ([]*Node, error) {
	if !d.Contains(n) {
		return nil, violation("replace", n, "node is not part of this DAG")
	}
	lines := n.lines
	for i, g := range gates {
		if err := d.validate(g); err != nil {
			return nil, violation("replace", n, "replacement gate %d: %v", i, err)
		}
		for _, l := range d.linesOf(g) {
			if !slices.Contains(lines, l) {
				return nil, violation("replace", n, "replacement gate %d (%s) touches %s outside the node", i, g, d.lineName(l))
			}
		}
	}

	cursor := make(map[int]*Node, len(lines))
	for _, q := range lines {
		cursor[q] = n.prev[q]
	}
	created := make([]*Node, 0, len(gates))
	for _, g := range gates {
		m := d.newNode(g)
		for _, q := range m.lines {
			p := cursor[q]
			m.prev[q] = p
			if p != nil {
				p.next[q] = m
			} else {
				d.heads[q] = m
			}
			cursor[q] = m
		}
		created = append(created, m)
	}
	for _, q := range lines {
		p, s := cursor[q], n.next[q]
		if p != nil {
			p.next[q] = s
		} else {
			d.heads[q] = s
		}
		if s != nil {
			s.prev[q] = p
		} else {
			d.tails[q] = p
		}
	}
	d.detach(n)
	return created, nil
}

// predecessors returns the distinct nodes n directly depends on.
func predecessors(n *Node) []*Node {
	var out []*Node
	for _, p := range n.prev {
		if p != nil && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// successors returns the distinct nodes that directly depend on n.
func successors(n *Node) []*Node {
	var out []*Node
	for _, s := range n.next {
		if s != nil && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Predecessors returns the distinct nodes n directly depends on, lowest ID first.
func (d *DAG) Predecessors(n *Node) []*Node {
	out := predecessors(n)
	slices.SortFunc(out, func(a, b *Node) int { return a.ID - b.ID })
	return out
}

// Successors returns the distinct nodes directly depending on n, lowest ID first.
func (d *DAG) Successors(n *Node) []*Node {
	out := successors(n)
	slices.SortFunc(out, func(a, b *Node) int { return a.ID - b.ID })
	return out
}

// TopologicalSort returns the nodes in a linear extension of the DAG.
// Among ready nodes the one with the lowest ID (earliest created) goes first,
// so the order is stable across runs and round trips.
func (d *DAG) TopologicalSort() ([]*Node, error) {
	indegree := make(map[*Node]int, len(d.nodes))
	ready := &nodeHeap{}
	for _, n := range d.nodes {
		indegree[n] = len(predecessors(n))
		if indegree[n] == 0 {
			*ready = append(*ready, n)
		}
	}
	heap.Init(ready)

	order := make([]*Node, 0, len(d.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*Node)
		order = append(order, n)
		for _, s := range successors(n) {
			indegree[s]--
			if indegree[s] == 0 {
				heap.Push(ready, s)
			}
		}
	}
	if len(order) != len(d.nodes) {
		return nil, violation("sort", nil, "cycle detected: %d of %d nodes ordered", len(order), len(d.nodes))
	}
	return order, nil
}

// Flatten converts the DAG back into a circuit using TopologicalSort.
func (d *DAG) Flatten() (*circuit.Circuit, error) {
	order, err := d.TopologicalSort()
	if err != nil {
		return nil, err
	}
	c := circuit.New(d.numQubits)
	c.Cregs = slices.Clone(d.cregs)
	c.Gates = make([]circuit.Gate, 0, len(order))
	for _, n := range order {
		c.Gates = append(c.Gates, n.gate.Clone())
	}
	return c, nil
}

// Check audits the DAG invariants: every qubit and classical bit line is
// consistently doubly linked, every node sits on exactly the lines its gate
// touches, and the graph has no cycle.
func (d *DAG) Check() error {
	seen := make(map[*Node]int, len(d.nodes))
	for q := range d.NumLines() {
		name := d.lineName(q)
		var prev *Node
		for n := d.heads[q]; n != nil; n = n.next[q] {
			if n.dag != d {
				return violation("check", n, "%s links a node outside the DAG", name)
			}
			if !slices.Contains(d.linesOf(n.gate), q) {
				return violation("check", n, "on %s but does not touch it", name)
			}
			if n.prev[q] != prev {
				return violation("check", n, "broken back link on %s", name)
			}
			seen[n]++
			if seen[n] > len(n.lines) {
				return violation("check", n, "%s line loops", name)
			}
			prev = n
		}
		if d.tails[q] != prev {
			return violation("check", prev, "frontier of %s is not the line tail", name)
		}
	}
	for _, n := range d.nodes {
		if seen[n] != len(n.lines) {
			return violation("check", n, "linked on %d of %d lines", seen[n], len(n.lines))
		}
	}
	_, err := d.TopologicalSort()
	return err
}

// Clone returns an independent copy with the same node IDs and tags.
func (d *DAG) Clone() *DAG {
	out := New(d.numQubits, d.numCbits)
	out.cregs = slices.Clone(d.cregs)
	out.nextID = d.nextID
	for id, n := range d.nodes {
		out.nodes[id] = &Node{
			ID:    id,
			gate:  n.gate.Clone(),
			lines: slices.Clone(n.lines),
			tags:  maps.Clone(n.tags),
			prev:  make(map[int]*Node, len(n.prev)),
			next:  make(map[int]*Node, len(n.next)),
			dag:   out,
		}
	}
	mapped := func(n *Node) *Node {
		if n == nil {
			return nil
		}
		return out.nodes[n.ID]
	}
	for id, n := range d.nodes {
		m := out.nodes[id]
		for q, p := range n.prev {
			m.prev[q] = mapped(p)
		}
		for q, s := range n.next {
			m.next[q] = mapped(s)
		}
	}
	for q := range d.NumLines() {
		out.heads[q] = mapped(d.heads[q])
		out.tails[q] = mapped(d.tails[q])
	}
	return out
}

// nodeHeap is a min-heap of nodes keyed by ID.
type nodeHeap []*Node

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].ID < h[j].ID }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(*Node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
