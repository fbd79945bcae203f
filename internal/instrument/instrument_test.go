package instrument

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"post-webhook/internal/config"
	"post-webhook/internal/store"
)

func testBuffer(t *testing.T) (*store.Store, *EventBuffer) {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "events"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	// Long interval so only explicit flushes write.
	buf := NewEventBuffer(s, 100, 60_000)
	t.Cleanup(buf.Stop)
	return s, buf
}

func TestGetInstrumenter_DefaultsToNoop(t *testing.T) {
	inst := GetInstrumenter(context.Background())
	if _, ok := inst.(*NoopInstrumenter); !ok {
		t.Fatalf("expected noop instrumenter, got %T", inst)
	}
	_, span := inst.StartSpan(context.Background(), "webhook", "dispatcher", "webhook.dispatch")
	span.SetMetadata("k", "v")
	span.End()
}

func TestSpan_NestsAndFlushes(t *testing.T) {
	s, buf := testBuffer(t)
	inst := NewInstrumenter(buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx, parent := inst.StartSpan(ctx, "http", "handler", "request")
	_, child := inst.StartSpan(ctx, "webhook", "dispatcher", "webhook.dispatch")
	child.SetStatus("ok")
	child.SetMetadata("status_code", 200)
	child.End()
	child.End() // second End is ignored
	parent.End()
	buf.Flush()

	rows, err := store.QueryRows(context.Background(), s.DB,
		"SELECT span_id, parent_span_id, action, status FROM _events WHERE trace_id = ?1 ORDER BY id", "trace-1")
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rows))
	}
	if rows[0]["action"] != "webhook.dispatch" || rows[0]["status"] != "ok" {
		t.Fatalf("unexpected child event %v", rows[0])
	}
	if rows[0]["parent_span_id"] != parent.SpanID() {
		t.Fatalf("child should reference parent span, got %v", rows[0]["parent_span_id"])
	}
	if rows[1]["parent_span_id"] != nil {
		t.Fatalf("root span should have no parent, got %v", rows[1]["parent_span_id"])
	}
}

func TestMiddleware_SetsTraceHeader(t *testing.T) {
	_, buf := testBuffer(t)

	app := fiber.New()
	app.Use(Middleware(config.InstrumentationConfig{Enabled: true, SamplingRate: 1.0}, buf))
	app.Get("/ping", func(c *fiber.Ctx) error {
		if GetTraceID(c.UserContext()) != "abc" {
			t.Errorf("trace id not propagated into context")
		}
		return c.SendString("pong")
	})

	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Trace-ID", "abc")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got := resp.Header.Get("X-Trace-ID"); got != "abc" {
		t.Fatalf("expected trace header abc, got %q", got)
	}
}
