package calltree

import (
	"github.com/goccy/go-json"
)

type jsonNode struct {
	Children       []*Node `json:"children,omitempty"`
	DurationNS     uint64  `json:"duration_ns"`
	EndNS          uint64  `json:"end_ns"`
	SelfTimeNS     uint64  `json:"self_time_ns"`
	ShortSignature string  `json:"short_signature,omitempty"`
	Signature      string  `json:"signature"`
	StartNS        uint64  `json:"start_ns"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	short, _ := n.ShortSignature()
	if short == n.signature {
		short = ""
	}
	return json.Marshal(jsonNode{
		Children:       n.children,
		DurationNS:     n.DurationNS,
		EndNS:          n.EndNS,
		SelfTimeNS:     n.SelfTimeNS(),
		ShortSignature: short,
		Signature:      n.signature,
		StartNS:        n.StartNS,
	})
}

// UnmarshalJSON restores a tree written by MarshalJSON. Decoded nodes are
// closed.
func (n *Node) UnmarshalJSON(b []byte) error {
	var v jsonNode
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.signature = v.Signature
	n.StartNS = v.StartNS
	n.EndNS = v.EndNS
	n.DurationNS = v.DurationNS
	n.closed = true
	n.children = v.Children
	for _, c := range n.children {
		c.parent = n
	}
	return nil
}
