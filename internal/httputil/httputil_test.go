package httputil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/getsentry/sentry-go"

	"github.com/getsentry/callprof/internal/calltree"
	"github.com/getsentry/callprof/internal/profiler"
	"github.com/getsentry/callprof/internal/testutil"
)

func TestProfileRequest(t *testing.T) {
	var (
		gotID   string
		gotRoot *calltree.Node
	)
	handler := ProfileRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !profiler.IsActive(ctx) {
			t.Fatal("expected an active session")
		}
		if SessionID(ctx) == "" {
			t.Fatal("expected a session ID")
		}
		profiler.Start(ctx, "render")
		profiler.Stop(ctx)
		w.WriteHeader(http.StatusNoContent)
	}), func(_ context.Context, sessionID string, root *calltree.Node) {
		gotID = sessionID
		gotRoot = root
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/render", nil))

	if gotRoot == nil {
		t.Fatal("expected the sink to receive a call tree")
	}
	if diff := testutil.Diff(gotRoot.Signature(), "POST /render"); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if !gotRoot.Closed() || len(gotRoot.Children()) != 1 {
		t.Fatalf("expected a closed root with 1 child, got %d", len(gotRoot.Children()))
	}
	if len(gotID) != 32 || w.Header().Get(SessionIDHeader) != gotID {
		t.Fatalf("unexpected session ID %q (header %q)", gotID, w.Header().Get(SessionIDHeader))
	}
}

func TestProfileRequestNested(t *testing.T) {
	sinks := 0
	sink := func(context.Context, string, *calltree.Node) { sinks++ }
	inner := ProfileRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profiler.Start(r.Context(), "handler")
		profiler.Stop(r.Context())
	}), sink)
	outer := ProfileRequest(inner, sink)

	outer.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if sinks != 1 {
		t.Fatalf("expected 1 call tree, got %d", sinks)
	}
}

func TestDecompressPayload(t *testing.T) {
	var compressed bytes.Buffer
	bw := brotli.NewWriter(&compressed)
	if _, err := bw.Write([]byte(`{"template":"${a}"}`)); err != nil {
		t.Fatal(err)
	}
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		encoding string
		body     io.Reader
		status   int
		payload  string
	}{
		{
			name:    "plain",
			body:    strings.NewReader(`{"template":"${a}"}`),
			status:  http.StatusOK,
			payload: `{"template":"${a}"}`,
		},
		{
			name:     "brotli",
			encoding: "br",
			body:     bytes.NewReader(compressed.Bytes()),
			status:   http.StatusOK,
			payload:  `{"template":"${a}"}`,
		},
		{
			name:     "unsupported",
			encoding: "zstd",
			body:     strings.NewReader("whatever"),
			status:   http.StatusUnsupportedMediaType,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var payload string
			handler := DecompressPayload(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("couldn't read body: %v", err)
				}
				payload = string(b)
			}))
			r := httptest.NewRequest(http.MethodPost, "/render", test.body)
			if test.encoding != "" {
				r.Header.Set("Content-Encoding", test.encoding)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != test.status {
				t.Fatalf("expected status %d, got %d", test.status, w.Code)
			}
			if diff := testutil.Diff(payload, test.payload); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestGetQueryParameter(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		value  string
		ok     bool
		status int
	}{
		{name: "default", url: "/render", value: "json", ok: true, status: http.StatusOK},
		{name: "allowed", url: "/render?format=speedscope", value: "speedscope", ok: true, status: http.StatusOK},
		{name: "not allowed", url: "/render?format=xml", ok: false, status: http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			value, ok := GetQueryParameter(w, httptest.NewRequest(http.MethodPost, test.url, nil), "format", "json", "json", "speedscope")
			if value != test.value || ok != test.ok || w.Code != test.status {
				t.Fatalf("unexpected result %q %v %d", value, ok, w.Code)
			}
		})
	}
}

func TestSetTransactionTags(t *testing.T) {
	header := http.Header{}
	header.Set(SessionIDHeader, "abc")
	e := SetTransactionTags(&sentry.Event{}, &sentry.EventHint{
		Response: &http.Response{StatusCode: http.StatusCreated, Header: header},
	})

	if diff := testutil.Diff(e.Tags, map[string]string{
		HTTPStatusCodeTag: "201",
		SessionIDTag:      "abc",
	}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	e = SetTransactionTags(&sentry.Event{}, &sentry.EventHint{})
	if e.Tags != nil {
		t.Fatalf("expected no tags without a response, got %v", e.Tags)
	}
}
