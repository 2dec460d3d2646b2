// Package otelspan captures OpenTelemetry spans into a testspan sink.
//
// Register the processor on an SDK tracer provider:
//
//	p := otelspan.NewProcessor(sink)
//	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(p))
//
// Every span the provider records becomes a testspan span. Parents are taken
// from the OTel parent when it was captured by the same processor, otherwise
// from a testspan span carried in the start context.
package otelspan

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoobzio/testspan"
)

const (
	// DefaultTarget is used when the instrumentation scope has no name.
	DefaultTarget = "otel"
	// StatusField records the span status when it ends in error.
	StatusField = "otel.status"
	// ExceptionEvent is the semantic-convention name for recorded errors.
	ExceptionEvent = "exception"
)

// Option configures a Processor.
type Option func(*Processor)

// WithTarget overrides the instrumentation scope name as the target.
func WithTarget(target string) Option {
	return func(p *Processor) { p.target = target }
}

// WithLevel sets the level spans are captured at. Defaults to LevelInfo.
func WithLevel(level testspan.Level) Option {
	return func(p *Processor) { p.level = level }
}

type captured struct {
	start map[attribute.Key]attribute.Value
	id    testspan.SpanID
}

// Processor implements sdktrace.SpanProcessor.
type Processor struct {
	sink   *testspan.Sink
	spans  map[trace.SpanID]*captured
	target string
	mu     sync.Mutex
	level  testspan.Level
}

var _ sdktrace.SpanProcessor = (*Processor)(nil)

// NewProcessor creates a processor writing to sink.
func NewProcessor(sink *testspan.Sink, opts ...Option) *Processor {
	p := &Processor{
		sink:  sink,
		spans: make(map[trace.SpanID]*captured),
		level: testspan.LevelInfo,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SpanID returns the testspan id an OTel span was captured as.
func (p *Processor) SpanID(sc trace.SpanContext) (testspan.SpanID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.spans[sc.SpanID()]
	if !ok {
		return 0, false
	}
	return c.id, true
}

// Context returns ctx carrying the testspan span of the OTel span active in
// ctx, so testspan spans and log bridges nest below it. ctx is returned
// unchanged when that span was not captured by p.
func (p *Processor) Context(ctx context.Context) context.Context {
	id, ok := p.SpanID(trace.SpanContextFromContext(ctx))
	if !ok {
		return ctx
	}
	return p.sink.ContextWithSpan(ctx, id)
}

func (p *Processor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	attrs := s.Attributes()
	start := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		start[kv.Key] = kv.Value
	}

	meta := testspan.Metadata{
		Name:   s.Name(),
		Target: p.targetFor(s),
		Level:  p.level,
	}
	id := p.sink.NewSpan(p.parentOf(parent, s), meta, records(attrs)...)

	p.mu.Lock()
	p.spans[s.SpanContext().SpanID()] = &captured{id: id, start: start}
	p.mu.Unlock()
}

func (p *Processor) OnEnd(s sdktrace.ReadOnlySpan) {
	p.mu.Lock()
	c, ok := p.spans[s.SpanContext().SpanID()]
	var start map[attribute.Key]attribute.Value
	if ok {
		start, c.start = c.start, nil
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	// Start attributes were recorded by OnStart.
	for _, kv := range s.Attributes() {
		if prev, seen := start[kv.Key]; seen && prev == kv.Value {
			continue
		}
		p.sink.RecordField(c.id, string(kv.Key), Value(kv.Value))
	}

	target := p.targetFor(s)
	for _, ev := range s.Events() {
		level := p.level
		if ev.Name == ExceptionEvent {
			level = testspan.LevelError
		}
		fields := append([]testspan.Record{testspan.Message(ev.Name)}, records(ev.Attributes)...)
		p.sink.LogEvent(c.id, testspan.Metadata{Name: "event", Target: target, Level: level}, fields...)
	}

	if status := s.Status(); status.Code == codes.Error {
		text := "error"
		if status.Description != "" {
			text += ": " + status.Description
		}
		p.sink.RecordField(c.id, StatusField, testspan.String(text))
	}

	p.sink.CloseSpan(c.id)
}

func (*Processor) Shutdown(context.Context) error {
	return nil
}

func (*Processor) ForceFlush(context.Context) error {
	return nil
}

func (p *Processor) parentOf(ctx context.Context, s sdktrace.ReadWriteSpan) testspan.SpanID {
	if parent := s.Parent(); parent.IsValid() {
		p.mu.Lock()
		c, ok := p.spans[parent.SpanID()]
		p.mu.Unlock()
		if ok {
			return c.id
		}
	}
	if testspan.SinkFromContext(ctx) == p.sink {
		return testspan.SpanIDFromContext(ctx)
	}
	return 0
}

func (p *Processor) targetFor(s sdktrace.ReadOnlySpan) string {
	if p.target != "" {
		return p.target
	}
	if name := s.InstrumentationScope().Name; name != "" {
		return name
	}
	return DefaultTarget
}

func records(attrs []attribute.KeyValue) []testspan.Record {
	out := make([]testspan.Record, 0, len(attrs))
	for _, kv := range attrs {
		out = append(out, testspan.Record{Name: string(kv.Key), Value: Value(kv.Value)})
	}
	return out
}

// Value converts an OTel attribute value. Slices are kept as their
// emitted text.
func Value(v attribute.Value) testspan.Value {
	switch v.Type() {
	case attribute.BOOL:
		return testspan.Bool(v.AsBool())
	case attribute.INT64:
		return testspan.Int64(v.AsInt64())
	case attribute.FLOAT64:
		return testspan.Float64(v.AsFloat64())
	case attribute.STRING:
		return testspan.String(v.AsString())
	default:
		return testspan.Debug(v.Emit())
	}
}
