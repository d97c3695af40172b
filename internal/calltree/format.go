package calltree

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

const separator = "--------------------------------------------------------------------------------\n"

// String renders the tree with self and total time of every frame, relative
// to the duration of n.
func (n *Node) String() string {
	var b bytes.Buffer
	_ = n.Print(&b)
	return b.String()
}

func (n *Node) Print(w io.Writer) error {
	var b bytes.Buffer
	b.WriteString(separator)
	b.WriteString("Selftime (ms)         Total (ms)            Signature\n")
	b.WriteString(separator)
	total := n.DurationNS
	n.Walk(func(c *Node, depth int) bool {
		self := c.SelfTimeNS()
		fmt.Fprintf(&b, "%10.2f %5s%%      %10.2f %5s%%      %s%s\n",
			nanosToMillis(self), percent(self, total),
			nanosToMillis(c.DurationNS), percent(c.DurationNS, total),
			indent(depth), c.DisplayName(),
		)
		return true
	})
	b.WriteString(separator)
	_, err := w.Write(b.Bytes())
	return err
}

func indent(depth int) string {
	if depth == 0 {
		return ""
	}
	return strings.Repeat("|   ", depth-1) + "|-- "
}

func nanosToMillis(ns uint64) float64 {
	return float64(ns) / 1e6
}

func percent(part, total uint64) string {
	if total == 0 {
		return "0"
	}
	return fmt.Sprintf("%d", part*100/total)
}
