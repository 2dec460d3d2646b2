package testspan

import (
	"context"
	"errors"
	"sync"
)

// ErrSinkInstalled is returned when a different sink is already installed as
// the process-wide sink.
var ErrSinkInstalled = errors.New("testspan: a different capture sink is already installed")

var (
	globalMu sync.Mutex
	global   *Sink
)

// Install makes s the process-wide sink. Installing the sink that is already
// installed is a no-op; installing a different one fails with ErrSinkInstalled.
func Install(s *Sink) error {
	if s == nil {
		return errors.New("testspan: cannot install a nil sink")
	}

	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil && global != s {
		global.logger.Error("refusing to replace the installed capture sink")
		return ErrSinkInstalled
	}
	global = s
	return nil
}

// Init installs a default sink if none is installed yet. Safe to call from
// every test; only the first call creates a sink.
func Init() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	global = New(WithLogger(logger))
	return nil
}

// MustInit is Init that panics on error.
func MustInit() {
	if err := Init(); err != nil {
		panic("testspan: couldn't set up the capture sink: " + err.Error())
	}
}

// Default returns the process-wide sink, installing one if needed.
func Default() *Sink {
	MustInit()

	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

// StartSpan opens a span on the process-wide sink.
func StartSpan(ctx context.Context, meta Metadata, fields ...Record) (context.Context, *ActiveSpan) {
	if s := SinkFromContext(ctx); s != nil {
		return s.StartSpan(ctx, meta, fields...)
	}
	return Default().StartSpan(ctx, meta, fields...)
}

// Event records a log event on the process-wide sink, inside the span active in ctx.
func Event(ctx context.Context, meta Metadata, fields ...Record) {
	if s := SinkFromContext(ctx); s != nil {
		s.Event(ctx, meta, fields...)
		return
	}
	Default().Event(ctx, meta, fields...)
}

// GetTelemetryForRoot returns the span tree and logs rooted at root.
func GetTelemetryForRoot(root SpanID, filter *Filter) (*Span, Records) {
	return Default().TelemetryForRoot(root, filter)
}

// GetSpansForRoot returns the filtered span tree rooted at root.
func GetSpansForRoot(root SpanID, filter *Filter) *Span {
	return Default().SpansForRoot(root, filter)
}

// GetLogsForRoot returns the filtered entries recorded under root.
func GetLogsForRoot(root SpanID, filter *Filter) Records {
	return Default().LogsForRoot(root, filter)
}

// GetAllLogs returns every captured log entry the filter approves.
func GetAllLogs(filter *Filter) Records {
	return Default().AllLogs(filter)
}
