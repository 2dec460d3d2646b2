// Package slogspan provides a log/slog handler that records into a testspan
// sink under the span carried by each record's context.
package slogspan

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/zoobzio/testspan"
)

// DefaultTarget is the target used when Options.Target is empty.
const DefaultTarget = "slog"

// Options configures a Handler.
type Options struct {
	// Level is the minimum level handled. Nil handles every level.
	Level slog.Leveler
	// Target every record is filed under.
	Target string
}

// Handler is a slog.Handler backed by a testspan sink.
type Handler struct {
	sink    *testspan.Sink
	opts    Options
	prefix  string
	records []testspan.Record
}

// NewHandler creates a handler writing to sink. A nil sink resolves the sink
// per record: the one carrying the record's span, else the process-wide sink.
func NewHandler(sink *testspan.Sink, opts Options) *Handler {
	if opts.Target == "" {
		opts.Target = DefaultTarget
	}
	return &Handler{sink: sink, opts: opts}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Level == nil {
		return true
	}
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	sink, span := h.resolve(ctx)

	records := make([]testspan.Record, 0, len(h.records)+r.NumAttrs()+1)
	records = append(records, testspan.Message(r.Message))
	records = append(records, h.records...)
	r.Attrs(func(a slog.Attr) bool {
		records = appendAttr(records, h.prefix, a)
		return true
	})

	meta := testspan.Metadata{
		Name:   eventName(r.PC),
		Target: h.opts.Target,
		Level:  Level(r.Level),
	}
	sink.LogEvent(span, meta, records...)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.records = make([]testspan.Record, 0, len(h.records)+len(attrs))
	h2.records = append(h2.records, h.records...)
	for _, a := range attrs {
		h2.records = appendAttr(h2.records, h.prefix, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *Handler) resolve(ctx context.Context) (*testspan.Sink, testspan.SpanID) {
	carried := testspan.SinkFromContext(ctx)
	sink := h.sink
	if sink == nil {
		sink = carried
	}
	if sink == nil {
		sink = testspan.Default()
	}
	if carried != sink {
		return sink, 0
	}
	return sink, testspan.SpanIDFromContext(ctx)
}

func eventName(pc uintptr) string {
	if pc == 0 {
		return "event"
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	return fmt.Sprintf("event %s:%d", filepath.Base(f.File), f.Line)
}

// appendAttr flattens a into records, naming group members "group.key".
func appendAttr(records []testspan.Record, prefix string, a slog.Attr) []testspan.Record {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return records
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return records
		}
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, member := range group {
			records = appendAttr(records, prefix, member)
		}
		return records
	}

	return append(records, testspan.Record{Name: prefix + a.Key, Value: Value(a.Value)})
}

// Value converts a resolved slog value.
func Value(v slog.Value) testspan.Value {
	switch v.Kind() {
	case slog.KindBool:
		return testspan.Bool(v.Bool())
	case slog.KindInt64:
		return testspan.Int64(v.Int64())
	case slog.KindUint64:
		return testspan.Uint64(v.Uint64())
	case slog.KindFloat64:
		return testspan.Float64(v.Float64())
	case slog.KindString:
		return testspan.String(v.String())
	default:
		return testspan.Any(v.Any())
	}
}

// Level maps a slog level onto testspan levels. Anything below
// slog.LevelDebug is LevelTrace.
func Level(l slog.Level) testspan.Level {
	switch {
	case l < slog.LevelDebug:
		return testspan.LevelTrace
	case l < slog.LevelInfo:
		return testspan.LevelDebug
	case l < slog.LevelWarn:
		return testspan.LevelInfo
	case l < slog.LevelError:
		return testspan.LevelWarn
	default:
		return testspan.LevelError
	}
}
