package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type recordingHandler struct {
	enabled    bool
	handleErr  error
	handled    int
	lastRecord slog.Record
	attrs      []slog.Attr
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return h.enabled }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.handled++
	h.lastRecord = r
	return h.handleErr
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *recordingHandler) WithGroup(string) slog.Handler {
	next := *h
	return &next
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", in, got, want)
		}
	}
}

func TestMultiHandlerFansOutToEveryChild(t *testing.T) {
	quiet := &recordingHandler{enabled: false}
	loud := &recordingHandler{enabled: true}
	mh := &multiHandler{handlers: []slog.Handler{quiet, loud}}

	if !mh.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected enabled when any child is enabled")
	}
	if (&multiHandler{handlers: []slog.Handler{quiet}}).Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected disabled when no child is enabled")
	}

	rec := slog.NewRecord(fixedTime(), slog.LevelInfo, "login accepted", 0)
	if err := mh.Handle(context.Background(), rec); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if quiet.handled != 1 || loud.handled != 1 {
		t.Fatalf("expected every child invoked, got quiet=%d loud=%d", quiet.handled, loud.handled)
	}
}

func TestMultiHandlerReturnsFirstErrorButKeepsGoing(t *testing.T) {
	failing := &recordingHandler{enabled: true, handleErr: errors.New("sink full")}
	healthy := &recordingHandler{enabled: true}
	mh := &multiHandler{handlers: []slog.Handler{failing, healthy}}

	rec := slog.NewRecord(fixedTime(), slog.LevelInfo, "msg", 0)
	err := mh.Handle(context.Background(), rec)
	if err == nil || err.Error() != "sink full" {
		t.Fatalf("expected first child error, got %v", err)
	}
	if healthy.handled != 1 {
		t.Fatal("expected later children still invoked after an error")
	}
}

func TestTraceContextHandlerStampsStableSchema(t *testing.T) {
	inner := &recordingHandler{enabled: true}
	h := &traceContextHandler{next: inner}

	// no span: attrs present but empty
	rec := slog.NewRecord(fixedTime(), slog.LevelInfo, "msg", 0)
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("handle no span: %v", err)
	}
	attrs := recordAttrs(inner.lastRecord)
	if got, ok := attrs["trace_id"]; !ok || got != "" {
		t.Fatalf("expected empty trace_id attr, got %q (present=%v)", got, ok)
	}
	if got, ok := attrs["span_id"]; !ok || got != "" {
		t.Fatalf("expected empty span_id attr, got %q (present=%v)", got, ok)
	}

	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	rec2 := slog.NewRecord(fixedTime(), slog.LevelInfo, "msg", 0)
	if err := h.Handle(ctx, rec2); err != nil {
		t.Fatalf("handle with span: %v", err)
	}
	attrs = recordAttrs(inner.lastRecord)
	if attrs["trace_id"] != "0af7651916cd43dd8448eb211c80319c" {
		t.Fatalf("unexpected trace_id %q", attrs["trace_id"])
	}
	if attrs["span_id"] != "b7ad6b7169203331" {
		t.Fatalf("unexpected span_id %q", attrs["span_id"])
	}
}

// The development logger fans each record out to a JSON stream and a text
// stream. Exercise the same handler composition NewLogger builds, against
// in-memory sinks.
func TestDevelopmentFanOutWritesBothStreams(t *testing.T) {
	var jsonBuf, textBuf bytes.Buffer
	base := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&jsonBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&textBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}
	logger := slog.New(&traceContextHandler{next: base})

	logger.Info("user registered", "user_id", 42)

	if !strings.Contains(jsonBuf.String(), `"msg":"user registered"`) {
		t.Fatalf("json stream missing record: %s", jsonBuf.String())
	}
	if !strings.Contains(jsonBuf.String(), `"trace_id":""`) {
		t.Fatalf("json stream missing trace_id attr: %s", jsonBuf.String())
	}
	if !strings.Contains(textBuf.String(), "msg=\"user registered\"") {
		t.Fatalf("text stream missing record: %s", textBuf.String())
	}
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	logger := NewLogger("production", "warn")
	ctx := context.Background()
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Fatal("expected info suppressed at warn level")
	}
	if !logger.Enabled(ctx, slog.LevelError) {
		t.Fatal("expected error enabled at warn level")
	}
}

func recordAttrs(rec slog.Record) map[string]string {
	out := map[string]string{}
	rec.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.String()
		return true
	})
	return out
}

func fixedTime() time.Time {
	return time.Unix(1756600000, 0).UTC()
}
