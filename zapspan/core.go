// Package zapspan routes zap log entries into a testspan sink, attributed to
// the span that was active when the logger was built.
package zapspan

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zoobzio/testspan"
)

// DefaultTarget is used when neither WithTarget nor a logger name is set.
const DefaultTarget = "zap"

type config struct {
	enabler zapcore.LevelEnabler
	target  string
	options []zap.Option
}

// Option configures the core.
type Option func(*config)

// WithTarget sets the target every entry is recorded under. Without it the
// zap logger name is used.
func WithTarget(target string) Option {
	return func(c *config) { c.target = target }
}

// WithLevel sets the minimum zap level forwarded to the sink.
func WithLevel(enabler zapcore.LevelEnabler) Option {
	return func(c *config) { c.enabler = enabler }
}

// WithZapOptions passes options through to zap.New in New.
func WithZapOptions(opts ...zap.Option) Option {
	return func(c *config) { c.options = append(c.options, opts...) }
}

func newConfig(opts []Option) config {
	cfg := config{enabler: zapcore.DebugLevel}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type core struct {
	sink   *testspan.Sink
	fields []zapcore.Field
	cfg    config
	span   testspan.SpanID
}

// NewCore returns a zapcore.Core that records every entry as a log event of
// span (zero for none) on sink.
func NewCore(sink *testspan.Sink, span testspan.SpanID, opts ...Option) zapcore.Core {
	return &core{sink: sink, span: span, cfg: newConfig(opts)}
}

// New returns a logger bound to the span active in ctx. A nil sink means the
// one carrying that span, or the process-wide sink when ctx has none.
func New(ctx context.Context, sink *testspan.Sink, opts ...Option) *zap.Logger {
	if sink == nil {
		sink = testspan.SinkFromContext(ctx)
	}
	if sink == nil {
		sink = testspan.Default()
	}
	var span testspan.SpanID
	if testspan.SinkFromContext(ctx) == sink {
		span = testspan.SpanIDFromContext(ctx)
	}

	cfg := newConfig(opts)
	c := &core{sink: sink, span: span, cfg: cfg}
	return zap.New(c, cfg.options...)
}

func (c *core) Enabled(level zapcore.Level) bool {
	return c.cfg.enabler.Enabled(level)
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	records := make([]testspan.Record, 0, len(c.fields)+len(fields)+1)
	records = append(records, testspan.Message(ent.Message))
	records = appendFields(records, c.fields)
	records = appendFields(records, fields)

	c.sink.LogEvent(c.span, c.metadata(ent), records...)
	return nil
}

func (*core) Sync() error {
	return nil
}

func (c *core) metadata(ent zapcore.Entry) testspan.Metadata {
	target := c.cfg.target
	if target == "" {
		target = ent.LoggerName
	}
	if target == "" {
		target = DefaultTarget
	}

	name := "event"
	if ent.Caller.Defined {
		name = "event " + ent.Caller.TrimmedPath()
	}

	return testspan.Metadata{Name: name, Target: target, Level: Level(ent.Level)}
}

// appendFields encodes zap fields in call order.
func appendFields(records []testspan.Record, fields []zapcore.Field) []testspan.Record {
	for _, f := range fields {
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)

		// A single field may expand to several keys (errors add errorVerbose).
		keys := make([]string, 0, len(enc.Fields))
		for k := range enc.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			records = append(records, testspan.Record{Name: k, Value: testspan.Any(enc.Fields[k])})
		}
	}
	return records
}

// Level maps a zap level to a testspan level. Anything more severe than
// error maps to LevelError.
func Level(l zapcore.Level) testspan.Level {
	switch {
	case l < zapcore.InfoLevel:
		return testspan.LevelDebug
	case l == zapcore.InfoLevel:
		return testspan.LevelInfo
	case l == zapcore.WarnLevel:
		return testspan.LevelWarn
	default:
		return testspan.LevelError
	}
}
