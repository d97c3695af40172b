package calltree

import (
	"github.com/getsentry/callprof/internal/signature"
)

type Node struct {
	DurationNS uint64
	EndNS      uint64
	StartNS    uint64

	signature string
	parent    *Node
	children  []*Node
	closed    bool
}

// NewRoot creates a node without a parent. Sessions use it for their root
// frame, it is also the way to build a node outside of a session.
func NewRoot(sig string) *Node {
	return &Node{signature: sig}
}

// NewRootAt creates a root node opened at startNS.
func NewRootAt(sig string, startNS uint64) *Node {
	return &Node{signature: sig, StartNS: startNS}
}

func (n *Node) Signature() string {
	return n.signature
}

// ShortSignature returns the display form of the signature, ok is false when
// the signature must not be shortened (template frames).
func (n *Node) ShortSignature() (string, bool) {
	return signature.Shorten(n.signature)
}

// DisplayName is the short signature when there is one, the signature otherwise.
func (n *Node) DisplayName() string {
	if short, ok := n.ShortSignature(); ok && short != "" {
		return short
	}
	return n.signature
}

func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Closed() bool {
	return n.closed
}

// AddChild opens a new frame under n. Closed nodes are final and return nil.
func (n *Node) AddChild(sig string, startNS uint64) *Node {
	if n.closed {
		return nil
	}
	c := &Node{
		StartNS:   startNS,
		signature: sig,
		parent:    n,
	}
	n.children = append(n.children, c)
	return c
}

// Close finalizes the node. Closing twice keeps the first end time.
func (n *Node) Close(endNS uint64) {
	if n.closed {
		return
	}
	n.closed = true
	n.SetDuration(endNS)
}

func (n *Node) SetDuration(t uint64) {
	n.EndNS = t
	if n.EndNS < n.StartNS {
		n.DurationNS = 0
		return
	}
	n.DurationNS = n.EndNS - n.StartNS
}

// RemoveChild detaches c from n and reports whether c was a child of n.
func (n *Node) RemoveChild(c *Node) bool {
	for i := len(n.children) - 1; i >= 0; i-- {
		if n.children[i] != c {
			continue
		}
		n.children = append(n.children[:i], n.children[i+1:]...)
		c.parent = nil
		return true
	}
	return false
}

// SelfTimeNS is the time spent in the frame itself, not in its children.
func (n *Node) SelfTimeNS() uint64 {
	var childrenNS uint64
	for _, c := range n.children {
		childrenNS += c.DurationNS
	}
	if childrenNS > n.DurationNS {
		return 0
	}
	return n.DurationNS - childrenNS
}

// Walk visits the tree in depth-first pre-order, which is also the order in
// which frames were started. Returning false from fn ends the walk.
func (n *Node) Walk(fn func(n *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(n *Node, depth int) bool, depth int) bool {
	if !fn(n, depth) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(fn, depth+1) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the tree, n included.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// Depth returns the number of levels of the tree, 1 for a leaf.
func (n *Node) Depth() int {
	depth := 0
	n.Walk(func(_ *Node, d int) bool {
		depth = max(depth, d+1)
		return true
	})
	return depth
}

// RemoveCallsFasterThan prunes closed frames whose duration is under
// thresholdNS, along with everything they called.
func (n *Node) RemoveCallsFasterThan(thresholdNS uint64) {
	children := n.children[:0]
	for _, c := range n.children {
		if c.closed && c.DurationNS < thresholdNS {
			c.parent = nil
			continue
		}
		c.RemoveCallsFasterThan(thresholdNS)
		children = append(children, c)
	}
	for i := len(children); i < len(n.children); i++ {
		n.children[i] = nil
	}
	n.children = children
}
