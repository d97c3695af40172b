// Package profiler records call trees for a unit of work.
//
// A session is activated on a context and travels with it. Instrumented code
// calls Start and Stop with that context; both are no-ops when the context
// carries no active session, so instrumentation can stay in place whether or
// not profiling is enabled. A session belongs to the goroutine that activated
// it: contexts handed to other goroutines must go through Detach.
package profiler

import (
	"context"
	"runtime"

	"github.com/getsentry/callprof/internal/calltree"
)

type ctxKey struct{}

type session struct {
	config

	name    string
	root    *calltree.Node
	stack   []*calltree.Node
	skipped int
	active  bool
}

func fromContext(ctx context.Context) *session {
	s, _ := ctx.Value(ctxKey{}).(*session)
	if s == nil || !s.active {
		return nil
	}
	return s
}

// Activate starts a session named name and returns the context carrying it
// along with the root frame, which is open until stopped or deactivated.
// If ctx already carries an active session, nothing changes: ctx is returned
// as is with a nil root.
func Activate(ctx context.Context, name string, opts ...Option) (context.Context, *calltree.Node) {
	if s := fromContext(ctx); s != nil {
		s.logger.Debug().
			Str("session", s.name).
			Str("rejected_session", name).
			Msg("profiling is already active")
		return ctx, nil
	}
	cfg := apply(defaultConfig(), opts...)
	s := &session{
		config: cfg,
		name:   name,
		root:   calltree.NewRootAt(name, cfg.nowNS()),
		stack:  make([]*calltree.Node, 1, 16),
		active: true,
	}
	s.stack[0] = s.root
	return context.WithValue(ctx, ctxKey{}, s), s.root
}

// Start opens a frame under the frame currently open in ctx.
func Start(ctx context.Context, signature string) {
	s := fromContext(ctx)
	if s == nil {
		return
	}
	if len(s.stack) == 0 {
		s.logger.Debug().
			Str("session", s.name).
			Str("signature", signature).
			Msg("frame started after the root frame was stopped")
		return
	}
	if s.skipped > 0 || (s.maxDepth > 0 && len(s.stack) >= s.maxDepth) {
		s.skipped++
		return
	}
	n := s.stack[len(s.stack)-1].AddChild(signature, s.nowNS())
	if n == nil {
		return
	}
	s.stack = append(s.stack, n)
}

// Stop closes the frame currently open in ctx, the root frame included.
// Extra calls are ignored.
func Stop(ctx context.Context) {
	s := fromContext(ctx)
	if s == nil {
		return
	}
	if s.skipped > 0 {
		s.skipped--
		return
	}
	if len(s.stack) == 0 {
		s.logger.Debug().
			Str("session", s.name).
			Msg("stop called without an open frame")
		return
	}
	last := len(s.stack) - 1
	n := s.stack[last]
	s.stack[last] = nil
	s.stack = s.stack[:last]
	n.Close(s.nowNS())
	if parent := n.Parent(); parent != nil && n.DurationNS < s.minExecutionNS {
		parent.RemoveChild(n)
	}
}

// Deactivate ends the session carried by ctx and returns its root frame.
// Frames still open are closed now.
func Deactivate(ctx context.Context) *calltree.Node {
	s := fromContext(ctx)
	if s == nil {
		return nil
	}
	if open := len(s.stack) - 1; open > 0 {
		s.logger.Debug().
			Str("session", s.name).
			Int("open_frames", open).
			Msg("session deactivated with open frames")
	}
	now := s.nowNS()
	for i := len(s.stack) - 1; i >= 0; i-- {
		s.stack[i].Close(now)
	}
	s.stack = nil
	s.skipped = 0
	s.active = false
	return s.root
}

// IsActive reports whether ctx carries an active session.
func IsActive(ctx context.Context) bool {
	return fromContext(ctx) != nil
}

// Current returns the frame currently open in ctx, nil if there is none.
func Current(ctx context.Context) *calltree.Node {
	s := fromContext(ctx)
	if s == nil || len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Detach returns a context that carries everything ctx does except its
// session. Goroutines spawned during a session get a detached context.
func Detach(ctx context.Context) context.Context {
	if fromContext(ctx) == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, (*session)(nil))
}

// Trace starts a frame named after the calling function and returns the
// function stopping it:
//
//	defer profiler.Trace(ctx)()
func Trace(ctx context.Context) func() {
	if fromContext(ctx) == nil {
		return func() {}
	}
	name := "unknown"
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			name = fn.Name()
		}
	}
	Start(ctx, name)
	return func() { Stop(ctx) }
}
