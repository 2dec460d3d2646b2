package testspan

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Sink is the capture point for span and log notifications. It owns the
// span forest, the per-span recorders and the global log accumulator, and
// answers report queries against them.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type Sink struct {
	forest       *forest
	spans        *spanStore
	logs         *logsRecorder
	clock        clockz.Clock
	logger       *zap.Logger
	handlers     []handlerEntry
	panicHook    func(handlerID uint64, r interface{})
	handlersLock sync.RWMutex
	nextSpan     atomic.Uint64
	nextHandler  atomic.Uint64
}

// Option configures a Sink.
type Option func(*Sink)

// WithClock sets the clock used to stamp span start and end times.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(s *Sink) { s.clock = clock }
}

// WithLogger sets the logger used for the sink's own diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// New creates an empty sink. Uses the real clock and a no-op logger unless
// overridden.
func New(opts ...Option) *Sink {
	s := &Sink{
		forest:   newForest(),
		spans:    newSpanStore(),
		logs:     newLogsRecorder(),
		clock:    clockz.RealClock,
		logger:   zap.NewNop(),
		handlers: make([]handlerEntry, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clockz.RealClock
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// NewSpan registers a span. When parent is non-zero the span joins the
// parent's DAG, otherwise it becomes a new root. fields are recorded as one pass.
func (s *Sink) NewSpan(parent SpanID, meta Metadata, fields ...Record) SpanID {
	id := SpanID(s.nextSpan.Add(1))
	meta.SpanID = 0

	rec := newSpanRecorder(meta, s.clock.Now())
	if len(fields) > 0 {
		rec.acc.Merge(meta, NewAttributeSet(fields...))
	}
	// The recorder goes in before the graph node so that a concurrent report
	// never sees a node it cannot resolve.
	s.spans.put(id, rec)

	root, err := s.forest.insert(id, parent)
	if err != nil {
		s.fatal(err)
	}

	s.logger.Debug("span created",
		zap.Uint64("span_id", uint64(id)),
		zap.Uint64("parent_id", uint64(parent)),
		zap.Uint64("root_id", uint64(root)),
		zap.String("span", meta.DisplayName()),
		zap.Stringer("level", meta.Level),
	)
	return id
}

// RecordField records name=value on span id.
func (s *Sink) RecordField(id SpanID, name string, value Value) {
	if !s.spans.record(id, name, value) {
		s.fatal(fmt.Errorf("%w: field %q recorded on unknown span %d", ErrInconsistentState, name, id))
	}
}

// LogEvent records a log event that happened inside span current, or outside
// any span when current is zero.
func (s *Sink) LogEvent(current SpanID, meta Metadata, fields ...Record) {
	s.logs.event(meta.WithSpanID(current), NewAttributeSet(fields...))
}

// CloseSpan marks span id as closed. Closing keeps every captured record so
// queries may run afterwards. Close handlers run on the first close only.
func (s *Sink) CloseSpan(id SpanID) {
	rec, first, ok := s.spans.close(id, s.clock.Now())
	if !ok {
		s.fatal(fmt.Errorf("%w: close of unknown span %d", ErrInconsistentState, id))
	}
	if !first {
		return
	}

	loc, _ := s.forest.locate(id)
	closed := ClosedSpan{
		ID:        id,
		Root:      loc.root,
		Metadata:  rec.metadata,
		StartTime: rec.start,
		EndTime:   rec.end,
		Duration:  rec.end.Sub(rec.start),
	}

	s.logger.Debug("span closed",
		zap.Uint64("span_id", uint64(id)),
		zap.String("span", rec.metadata.DisplayName()),
		zap.Duration("duration", closed.Duration),
	)

	s.executeHandlers(closed)
}

// SpanCount returns the number of spans captured since the last reset.
func (s *Sink) SpanCount() int {
	return s.spans.len()
}

// RootCount returns the number of span DAGs captured since the last reset.
func (s *Sink) RootCount() int {
	return s.forest.roots()
}

// Reset clears every captured span and log. Span ids are not reused.
func (s *Sink) Reset() {
	s.forest.reset()
	s.spans.reset()
	s.logs.reset()
}

// fatal reports a consistency violation and aborts the caller.
func (s *Sink) fatal(err error) {
	s.logger.Error("span registries diverged", zap.Error(err))
	panic(err)
}
