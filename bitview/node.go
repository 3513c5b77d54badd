package bitview

import "fmt"

// BitRange locates a decoded field inside the source buffer.
type BitRange struct {
	// Start is the bit offset from the start of the buffer.
	Start uint64

	// Length is the extent in bits.
	Length uint64
}

// End returns the first bit offset past the range.
func (r BitRange) End() uint64 {
	return r.Start + r.Length
}

// Contains reports whether the bit offset q lies inside the range.
func (r BitRange) Contains(q uint64) bool {
	return q >= r.Start && q < r.End()
}

// String formats the range as [start, end) in bits.
func (r BitRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End())
}

// Node is one labeled region in a decoded structure tree.
//
// Leaves carry the range they were decoded from. Grouping nodes may leave
// Range nil until Aggregate derives it from their children.
type Node struct {
	// Label describes the region, e.g. "PartCount: 4". Decoding errors
	// are appended to the label of the node they were confined to.
	Label string

	// Range is the bit range the node covers, nil if not yet assigned.
	Range *BitRange

	// Children are the sub-regions in decode order.
	Children []*Node
}

// NewNode creates an unranged grouping node.
func NewNode(label string) *Node {
	return &Node{Label: label}
}

// Leaf creates a node with an assigned range.
func Leaf(label string, start, length uint64) *Node {
	return &Node{Label: label, Range: &BitRange{Start: start, Length: length}}
}

// AddChild appends a child and returns it.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Annotate appends an error description to the node's label, marking the
// subtree as partially decoded without aborting the surrounding decode.
func (n *Node) Annotate(err error) {
	n.Label += " (error: " + err.Error() + ")"
}

// Walk visits the node and every descendant in depth-first document order.
// Returning false from the visitor stops the walk.
func (n *Node) Walk(visit func(*Node, int) bool) {
	n.walk(visit, 0)
}

func (n *Node) walk(visit func(*Node, int) bool, depth int) bool {
	if !visit(n, depth) {
		return false
	}
	for _, c := range n.Children {
		if !c.walk(visit, depth+1) {
			return false
		}
	}
	return true
}

// Find returns the first node in document order whose label satisfies the
// predicate, or nil.
func (n *Node) Find(pred func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(c *Node, _ int) bool {
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// Aggregate assigns ranges to grouping nodes bottom-up: a node without a
// range receives the minimal range covering all its children. Children are
// not required to nest or even to be disjoint; only their extremes matter.
//
// A node with no children and no range cannot be aggregated. That is a
// defect in the code that built the tree, not in the input data, so
// Aggregate panics rather than guessing.
func Aggregate(n *Node) {
	for _, c := range n.Children {
		Aggregate(c)
	}
	if n.Range != nil {
		return
	}
	if len(n.Children) == 0 {
		panic(fmt.Sprintf("bitview: node %q has neither range nor children", n.Label))
	}
	start := n.Children[0].Range.Start
	end := n.Children[0].Range.End()
	for _, c := range n.Children[1:] {
		if c.Range.Start < start {
			start = c.Range.Start
		}
		if e := c.Range.End(); e > end {
			end = e
		}
	}
	n.Range = &BitRange{Start: start, Length: end - start}
}

// At returns the deepest node in an aggregated tree whose range contains
// the bit offset q. Descent takes the first containing child at each
// level, so overlapping siblings resolve to the earlier one in document
// order. Returns nil if the root does not contain q.
func At(root *Node, q uint64) *Node {
	if root == nil || root.Range == nil || !root.Range.Contains(q) {
		return nil
	}
	n := root
descend:
	for {
		for _, c := range n.Children {
			if c.Range != nil && c.Range.Contains(q) {
				n = c
				continue descend
			}
		}
		return n
	}
}

// Path returns the chain of nodes from the root to the deepest node
// containing q, using the same descent rule as At. Returns nil if the
// root does not contain q.
func Path(root *Node, q uint64) []*Node {
	if root == nil || root.Range == nil || !root.Range.Contains(q) {
		return nil
	}
	path := []*Node{root}
	n := root
descend:
	for {
		for _, c := range n.Children {
			if c.Range != nil && c.Range.Contains(q) {
				path = append(path, c)
				n = c
				continue descend
			}
		}
		return path
	}
}
