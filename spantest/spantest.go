// Package spantest runs a test body inside a root span and exposes the
// telemetry it produced.
//
//	func TestCheckout(t *testing.T) {
//		spantest.Run(t, func(st *spantest.T) {
//			checkout(st.Context())
//			require.True(st, st.Logs().ContainsMessage("charged"))
//		})
//	}
//
// The filter comes from TESTSPAN_LEVEL and TESTSPAN_TARGETS unless overridden.
package spantest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zoobzio/testspan"
)

// RootName is the name of the span wrapping each test body.
const RootName = "root"

type config struct {
	sink    *testspan.Sink
	level   *testspan.Level
	targets []target
}

type target struct {
	prefix string
	level  testspan.Level
}

// Option configures Run.
type Option func(*config)

// WithLevel overrides the default filter level.
func WithLevel(level testspan.Level) Option {
	return func(c *config) { c.level = &level }
}

// WithTarget adds a per-target filter directive.
func WithTarget(prefix string, level testspan.Level) Option {
	return func(c *config) { c.targets = append(c.targets, target{prefix: prefix, level: level}) }
}

// WithSink runs against sink instead of the process-wide one.
func WithSink(sink *testspan.Sink) Option {
	return func(c *config) { c.sink = sink }
}

// T is handed to the test body. It embeds the running *testing.T.
type T struct {
	*testing.T
	ctx    context.Context
	sink   *testspan.Sink
	filter *testspan.Filter
	root   testspan.SpanID
}

// Run wraps body in a root span named RootName whose target is the test
// name and whose level is the filter's default level. The root is closed
// when body returns.
func Run(t *testing.T, body func(st *T), opts ...Option) {
	t.Helper()

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.sink == nil {
		testspan.MustInit()
		cfg.sink = testspan.Default()
	}

	env, err := testspan.LoadConfig()
	require.NoError(t, err, "load testspan config")
	if cfg.level != nil {
		env.Level = *cfg.level
	}
	filter, err := env.Filter()
	require.NoError(t, err, "build testspan filter")
	for _, tgt := range cfg.targets {
		filter = filter.WithTarget(tgt.prefix, tgt.level)
	}

	meta := testspan.Metadata{Name: RootName, Target: t.Name(), Level: filter.DefaultLevel()}
	ctx, root := cfg.sink.StartSpan(t.Context(), meta)
	defer root.Finish()

	body(&T{T: t, ctx: ctx, sink: cfg.sink, filter: filter, root: root.ID()})
}

// Context carries the root span. Pass it to the code under test.
func (st *T) Context() context.Context {
	return st.ctx
}

// RootID returns the id of the root span.
func (st *T) RootID() testspan.SpanID {
	return st.root
}

// Sink returns the sink the root lives in.
func (st *T) Sink() *testspan.Sink {
	return st.sink
}

// Filter returns the filter the queries use.
func (st *T) Filter() *testspan.Filter {
	return st.filter
}

// Telemetry returns the span tree and the log entries under the root.
func (st *T) Telemetry() (*testspan.Span, testspan.Records) {
	return st.sink.TelemetryForRoot(st.root, st.filter)
}

// Spans returns the span tree under the root.
func (st *T) Spans() *testspan.Span {
	return st.sink.SpansForRoot(st.root, st.filter)
}

// Logs returns the log entries under the root.
func (st *T) Logs() testspan.Records {
	return st.sink.LogsForRoot(st.root, st.filter)
}
