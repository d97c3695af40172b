package export

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/getsentry/callprof/internal/calltree"
)

const (
	OpSession = "profiler.session"
	OpFrame   = "profiler.frame"
)

// SentrySpans records root as a span tree on the hub carried by ctx: the
// root becomes a span (a transaction when ctx has no span yet) and every
// frame a child span with the frame's timing. Frames still open end with
// the root.
func SentrySpans(ctx context.Context, root *calltree.Node) *sentry.Span {
	if root == nil {
		return nil
	}
	lastNS := lastEndNS(root)
	s := sentry.StartSpan(ctx, OpSession, sentry.WithTransactionName(root.Signature()))
	s.Description = root.Signature()
	s.StartTime = nsToTime(root.StartNS)
	for _, c := range root.Children() {
		childSpans(s, c, lastNS)
	}
	s.EndTime = nsToTime(endNS(root, lastNS))
	s.Finish()
	return s
}

func childSpans(parent *sentry.Span, n *calltree.Node, lastNS uint64) {
	s := parent.StartChild(OpFrame)
	s.Description = n.DisplayName()
	if n.DisplayName() != n.Signature() {
		s.SetData("signature", n.Signature())
	}
	s.StartTime = nsToTime(n.StartNS)
	for _, c := range n.Children() {
		childSpans(s, c, lastNS)
	}
	s.EndTime = nsToTime(endNS(n, lastNS))
	s.Finish()
}

func endNS(n *calltree.Node, lastNS uint64) uint64 {
	if n.Closed() {
		return n.EndNS
	}
	return max(lastNS, n.StartNS)
}

// lastEndNS returns the latest end time of the closed frames of the tree.
func lastEndNS(root *calltree.Node) uint64 {
	var last uint64
	root.Walk(func(n *calltree.Node, _ int) bool {
		if n.Closed() {
			last = max(last, n.EndNS)
		}
		return true
	})
	return last
}

func nsToTime(ns uint64) time.Time {
	return time.Unix(0, int64(ns)).UTC()
}
