package export

import (
	"context"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/getsentry/callprof/internal/calltree"
	"github.com/getsentry/callprof/internal/testutil"
)

type TransportMock struct {
	events []*sentry.Event
}

func (t *TransportMock) Flush(_ time.Duration) bool {
	return true
}

func (t *TransportMock) Configure(_ sentry.ClientOptions) {}

func (t *TransportMock) SendEvent(event *sentry.Event) {
	t.events = append(t.events, event)
}

func (t *TransportMock) Close() {}

func newTestHub(t *testing.T) (*sentry.Hub, *TransportMock) {
	transport := &TransportMock{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              "http://whatever@example.com/1337",
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Transport:        transport,
	})
	if err != nil {
		t.Fatalf("couldn't create sentry client: %v", err)
	}
	return sentry.NewHub(client, sentry.NewScope()), transport
}

func TestSentrySpans(t *testing.T) {
	hub, transport := newTestHub(t)
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	root := calltree.NewRootAt("testFreemarkerProfiling", 1_000_000)
	ftl := root.AddChild("test.ftl:1#templateModel.foo", 2_000_000)
	ftl.AddChild("String com.example.web.TemplateModel.getFoo()", 3_000_000).Close(4_000_000)
	ftl.Close(5_000_000)
	root.Close(6_000_000)

	s := SentrySpans(ctx, root)
	if s == nil {
		t.Fatal("expected a span")
	}

	if len(transport.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(transport.events))
	}
	event := transport.events[0]
	if event.Type != "transaction" || event.Transaction != "testFreemarkerProfiling" {
		t.Fatalf("unexpected event %q %q", event.Type, event.Transaction)
	}

	type span struct {
		Op          string
		Description string
		Duration    time.Duration
	}
	var spans []span
	for _, s := range event.Spans {
		spans = append(spans, span{s.Op, s.Description, s.EndTime.Sub(s.StartTime)})
	}
	if diff := testutil.Diff(spans, []span{
		{OpFrame, "test.ftl:1#templateModel.foo", 3 * time.Millisecond},
		{OpFrame, "TemplateModel.getFoo()", time.Millisecond},
	}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if event.Spans[1].ParentSpanID != event.Spans[0].SpanID {
		t.Fatal("expected the method span to be a child of the template span")
	}
	if !event.StartTime.Equal(time.Unix(0, 1_000_000)) {
		t.Fatalf("unexpected start time %v", event.StartTime)
	}
}

func TestSentrySpansOpenFrames(t *testing.T) {
	hub, transport := newTestHub(t)
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	root := calltree.NewRootAt("session", 0)
	open := root.AddChild("open", 10)
	open.AddChild("closed", 20).Close(50)

	SentrySpans(ctx, root)

	if len(transport.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(transport.events))
	}
	event := transport.events[0]
	if !event.Timestamp.Equal(time.Unix(0, 50)) {
		t.Fatalf("expected the transaction to end with its last frame, got %v", event.Timestamp)
	}
	for _, s := range event.Spans {
		if !s.EndTime.Equal(time.Unix(0, 50)) {
			t.Fatalf("expected span %q to end at 50ns, got %v", s.Description, s.EndTime)
		}
	}
}

func TestSentrySpansNilTree(t *testing.T) {
	if SentrySpans(context.Background(), nil) != nil {
		t.Fatal("expected no span for a nil tree")
	}
}
