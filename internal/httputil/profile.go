package httputil

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/getsentry/callprof/internal/calltree"
	"github.com/getsentry/callprof/internal/profiler"
)

// SessionIDHeader carries the profiling session ID of a request in its
// response.
const SessionIDHeader = "X-Profiling-Session-ID"

type sessionIDKey struct{}

// Sink receives the call tree of a profiled request once its handler returned.
type Sink func(ctx context.Context, sessionID string, root *calltree.Node)

// ProfileRequest runs next inside a profiling session named after the request
// method and path. The finished tree goes to sink. Requests reaching it with a
// session already active are served without a new one.
func ProfileRequest(next http.Handler, sink Sink, opts ...profiler.Option) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, root := profiler.Activate(r.Context(), r.Method+" "+r.URL.Path, opts...)
		if root == nil {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := strings.Replace(uuid.New().String(), "-", "", -1)
		ctx = context.WithValue(ctx, sessionIDKey{}, sessionID)
		w.Header().Set(SessionIDHeader, sessionID)

		next.ServeHTTP(w, r.WithContext(ctx))

		profiler.Stop(ctx)
		root = profiler.Deactivate(ctx)
		if sink != nil {
			sink(ctx, sessionID, root)
		}
	})
}

// SessionID returns the ID of the profiling session set by ProfileRequest.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}
