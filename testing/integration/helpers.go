package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"

	"github.com/zoobzio/testspan"
	"github.com/zoobzio/testspan/zapspan"
)

// CloseRecorder wraps a collector with test assertions. Exported spans are
// kept so assertions can run repeatedly.
type CloseRecorder struct {
	*testspan.Collector
	t        *testing.T
	exported []testspan.ClosedSpan
	mu       sync.Mutex
}

// NewCloseRecorder subscribes an unbounded collector to sink and closes it on
// cleanup.
func NewCloseRecorder(t *testing.T, sink *testspan.Sink) *CloseRecorder {
	collector := testspan.NewCollector(sink, 0)
	t.Cleanup(collector.Close)
	return &CloseRecorder{Collector: collector, t: t}
}

// All returns every span closed so far.
func (r *CloseRecorder) All() []testspan.ClosedSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exported = append(r.exported, r.Collector.Export()...)
	all := make([]testspan.ClosedSpan, len(r.exported))
	copy(all, r.exported)
	return all
}

// AssertCount verifies the exact number of closes.
func (r *CloseRecorder) AssertCount(expected int) {
	r.t.Helper()
	if n := len(r.All()); n != expected {
		r.t.Errorf("Expected %d closed spans, got %d", expected, n)
	}
}

// AssertNamed returns the first close of a span with the given display name.
func (r *CloseRecorder) AssertNamed(name string) *testspan.ClosedSpan {
	r.t.Helper()
	all := r.All()
	for i := range all {
		if all[i].Metadata.DisplayName() == name {
			return &all[i]
		}
	}
	r.t.Errorf("Closed span named '%s' not found", name)
	return nil
}

// PrintSpanTree formats a span tree for debugging.
func PrintSpanTree(span *testspan.Span) string {
	var sb strings.Builder
	printTreeNode(&sb, span, 0)
	return sb.String()
}

func printTreeNode(sb *strings.Builder, span *testspan.Span, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s%s (%.2fms, %d entries)\n",
		indent, span.Name, span.EndTime.Sub(span.StartTime).Seconds()*1000, len(span.Record.Entries))
	for _, child := range span.Children {
		printTreeNode(sb, child.Span, depth+1)
	}
}

// MockService simulates a downstream dependency that opens a span per call
// and logs through zap.
type MockService struct {
	sink         *testspan.Sink
	clock        *clockz.FakeClock
	name         string
	latency      time.Duration
	mu           sync.Mutex
	requestCount int
	failEvery    int
}

// NewMockService creates a simulated service. Latency advances the fake
// clock instead of sleeping.
func NewMockService(name string, sink *testspan.Sink, clock *clockz.FakeClock) *MockService {
	return &MockService{
		name:    name,
		sink:    sink,
		clock:   clock,
		latency: 10 * time.Millisecond,
	}
}

// SetLatency configures response time.
func (m *MockService) SetLatency(d time.Duration) {
	m.mu.Lock()
	m.latency = d
	m.mu.Unlock()
}

// SetFailEvery makes every n-th call fail. Zero disables failures.
func (m *MockService) SetFailEvery(n int) {
	m.mu.Lock()
	m.failEvery = n
	m.mu.Unlock()
}

// Call simulates a service call.
func (m *MockService) Call(ctx context.Context, operation string) error {
	m.mu.Lock()
	m.requestCount++
	count := m.requestCount
	latency := m.latency
	shouldFail := m.failEvery > 0 && count%m.failEvery == 0
	m.mu.Unlock()

	meta := testspan.Metadata{Name: operation, Target: m.name, Level: testspan.LevelInfo}
	ctx, span := m.sink.StartSpan(ctx, meta,
		testspan.Field("service", m.name),
		testspan.Field("request_id", count))
	defer span.Finish()

	logger := zapspan.New(ctx, m.sink, zapspan.WithTarget(m.name))
	m.clock.Advance(latency)

	if shouldFail {
		span.Record("error", testspan.Bool(true))
		logger.Error("call failed", zap.String("operation", operation))
		return fmt.Errorf("%s: simulated failure", m.name)
	}

	logger.Info("call succeeded", zap.String("operation", operation))
	return nil
}

// SpanMatcher provides fluent assertions for report spans.
type SpanMatcher struct {
	t    *testing.T
	span *testspan.Span
}

// NewSpanMatcher creates a matcher for span assertions.
func NewSpanMatcher(t *testing.T, span *testspan.Span) *SpanMatcher {
	return &SpanMatcher{t: t, span: span}
}

// HasField verifies the span captured name=value.
func (m *SpanMatcher) HasField(name string, value testspan.Value) *SpanMatcher {
	m.t.Helper()
	if m.span == nil {
		return m
	}
	if !m.span.Fields().ContainsValue(name, value) {
		m.t.Errorf("Span %s missing field %s=%v", m.span.Name, name, value)
	}
	return m
}

// HasChildren verifies the number of direct children.
func (m *SpanMatcher) HasChildren(expected int) *SpanMatcher {
	m.t.Helper()
	if m.span == nil {
		return m
	}
	if len(m.span.Children) != expected {
		m.t.Errorf("Span %s: expected %d children, got %d", m.span.Name, expected, len(m.span.Children))
	}
	return m
}

// DurationBetween verifies duration is in range.
func (m *SpanMatcher) DurationBetween(minDur, maxDur time.Duration) *SpanMatcher {
	m.t.Helper()
	if m.span == nil {
		return m
	}
	d := m.span.EndTime.Sub(m.span.StartTime)
	if d < minDur || d > maxDur {
		m.t.Errorf("Span %s duration %v not in range [%v, %v]", m.span.Name, d, minDur, maxDur)
	}
	return m
}

// VerifyChain checks that the path of display names exists below span.
func VerifyChain(span *testspan.Span, names ...string) error {
	if _, ok := span.Find(names...); !ok {
		return fmt.Errorf("chain %s not found under %s:\n%s",
			strings.Join(names, " -> "), span.Name, PrintSpanTree(span))
	}
	return nil
}
