package testspan

import (
	"context"
	"sync"
)

// bundleKeyType is a private type for context keys to avoid collisions.
type bundleKeyType string

const (
	bundleKey bundleKeyType = "testspan"
)

// contextBundle holds both sink and span id to reduce context allocations.
type contextBundle struct {
	sink *Sink
	id   SpanID
}

// ActiveSpan is a handle on an open span.
// Safe for concurrent use by multiple goroutines.
type ActiveSpan struct {
	sink     *Sink
	meta     Metadata
	id       SpanID
	mu       sync.Mutex
	finished bool
}

// StartSpan opens a span described by meta. If ctx carries an active span
// of this sink, the new span becomes its child; otherwise it starts a new root.
// The returned context carries the new span.
func (s *Sink) StartSpan(ctx context.Context, meta Metadata, fields ...Record) (context.Context, *ActiveSpan) {
	// Handle nil context by creating a new one.
	if ctx == nil {
		ctx = context.Background()
	}

	id := s.NewSpan(s.currentSpan(ctx), meta, fields...)
	active := &ActiveSpan{
		sink: s,
		meta: meta.WithSpanID(0),
		id:   id,
	}

	return active.Context(ctx), active
}

// Event records a log event inside the span active in ctx, if any.
func (s *Sink) Event(ctx context.Context, meta Metadata, fields ...Record) {
	s.LogEvent(s.currentSpan(ctx), meta, fields...)
}

// currentSpan returns the span of this sink active in ctx, zero if none.
func (s *Sink) currentSpan(ctx context.Context) SpanID {
	if ctx == nil {
		return 0
	}
	if bundle, ok := ctx.Value(bundleKey).(*contextBundle); ok && bundle.sink == s {
		return bundle.id
	}
	return 0
}

// Record sets name=value on the span.
// No-op if span is already finished.
func (a *ActiveSpan) Record(name string, value Value) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't modify finished spans.
	if a.finished {
		return
	}
	a.sink.RecordField(a.id, name, value)
}

// RecordAny is Record with the value converted by Any.
func (a *ActiveSpan) RecordAny(name string, value any) {
	a.Record(name, Any(value))
}

// Finish closes the span.
// Safe to call multiple times - subsequent calls are no-ops.
func (a *ActiveSpan) Finish() {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return
	}
	a.finished = true
	a.mu.Unlock()

	// Close handlers run outside the lock so they may use the span.
	a.sink.CloseSpan(a.id)
}

// ID returns the span id.
func (a *ActiveSpan) ID() SpanID {
	return a.id
}

// Metadata returns the metadata the span was opened with.
func (a *ActiveSpan) Metadata() Metadata {
	return a.meta
}

// Context creates a new context with this span embedded.
// The returned context can be used to start child spans.
func (a *ActiveSpan) Context(parent context.Context) context.Context {
	return a.sink.ContextWithSpan(parent, a.id)
}

// ContextWithSpan returns a context carrying span id of s, for code that
// creates spans through NewSpan rather than StartSpan.
func (s *Sink) ContextWithSpan(ctx context.Context, id SpanID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, bundleKey, &contextBundle{sink: s, id: id})
}

// SpanIDFromContext extracts the active span id from a context.
// Returns zero if no span is present.
func SpanIDFromContext(ctx context.Context) SpanID {
	if ctx == nil {
		return 0
	}

	if bundle, ok := ctx.Value(bundleKey).(*contextBundle); ok {
		return bundle.id
	}

	return 0
}

// SinkFromContext returns the sink that owns the span active in ctx.
// Returns nil if no span is present.
func SinkFromContext(ctx context.Context) *Sink {
	if ctx == nil {
		return nil
	}

	if bundle, ok := ctx.Value(bundleKey).(*contextBundle); ok {
		return bundle.sink
	}

	return nil
}
