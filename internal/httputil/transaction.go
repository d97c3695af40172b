package httputil

import (
	"strconv"

	"github.com/getsentry/sentry-go"
)

const (
	// HTTPStatusCodeTag is the name of the HTTP status code tag.
	HTTPStatusCodeTag = "http.response.status_code"
	// SessionIDTag is the name of the profiling session ID tag.
	SessionIDTag = "profiling.session_id"
)

// SetTransactionTags sets the status code and profiling session tags of the
// current request on its top-level transaction.
func SetTransactionTags(e *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint == nil || hint.Response == nil {
		return e
	}
	if e.Tags == nil {
		e.Tags = make(map[string]string)
	}
	if _, exists := e.Tags[HTTPStatusCodeTag]; !exists {
		e.Tags[HTTPStatusCodeTag] = strconv.Itoa(hint.Response.StatusCode)
	}
	if id := hint.Response.Header.Get(SessionIDHeader); id != "" {
		e.Tags[SessionIDTag] = id
	}
	return e
}
