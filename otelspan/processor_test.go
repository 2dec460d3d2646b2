package otelspan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoobzio/testspan"
)

func setup(t *testing.T, opts ...Option) (*testspan.Sink, *Processor, trace.Tracer) {
	t.Helper()
	sink := testspan.New()
	p := NewProcessor(sink, opts...)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(p))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sink, p, tp.Tracer("checkout")
}

func TestSpansBecomeTree(t *testing.T) {
	sink, p, tracer := setup(t)

	ctx, order := tracer.Start(context.Background(), "order", trace.WithAttributes(attribute.String("id", "o-1")))
	_, charge := tracer.Start(ctx, "charge", trace.WithAttributes(attribute.Int("cents", 1250)))
	charge.SetAttributes(attribute.Bool("captured", true))
	charge.End()
	order.End()

	root, ok := p.SpanID(order.SpanContext())
	require.True(t, ok)

	tree := sink.SpansForRoot(root, testspan.NewFilter(testspan.LevelInfo))
	assert.Equal(t, "checkout::order", tree.Name)
	assert.True(t, tree.Fields().ContainsValue("id", testspan.String("o-1")))

	child, ok := tree.Find("checkout::charge")
	require.True(t, ok)
	assert.Equal(t, []string{"cents", "captured"}, []string{child.Fields()[0].Name, child.Fields()[1].Name})
	assert.Len(t, child.Fields(), 2)
	assert.False(t, child.EndTime.IsZero())
}

func TestEventsAndErrorStatus(t *testing.T) {
	sink, p, tracer := setup(t)

	_, span := tracer.Start(context.Background(), "pay")
	span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", 2)))
	span.RecordError(errors.New("card declined"))
	span.SetStatus(codes.Error, "declined")
	span.End()

	id, ok := p.SpanID(span.SpanContext())
	require.True(t, ok)

	logs := sink.LogsForRoot(id, testspan.NewFilter(testspan.LevelInfo))
	assert.True(t, logs.ContainsMessage("retry"))
	assert.True(t, logs.ContainsValue("attempt", testspan.Int64(2)))
	assert.True(t, logs.ContainsMessage(ExceptionEvent))
	assert.True(t, logs.ContainsValue(StatusField, testspan.String("error: declined")))

	errorsOnly := sink.LogsForRoot(id, testspan.NewFilter(testspan.LevelError))
	assert.True(t, errorsOnly.ContainsMessage(ExceptionEvent))
	assert.False(t, errorsOnly.ContainsMessage("retry"))
}

func TestParentFromTestspanContext(t *testing.T) {
	sink, _, tracer := setup(t)

	ctx, root := sink.StartSpan(context.Background(),
		testspan.Metadata{Name: "root", Target: "tests", Level: testspan.LevelInfo})
	_, span := tracer.Start(ctx, "query")
	span.End()

	tree := sink.SpansForRoot(root.ID(), testspan.NewFilter(testspan.LevelInfo))
	_, ok := tree.Find("checkout::query")
	assert.True(t, ok)
	assert.Equal(t, 1, sink.RootCount())
}

func TestTargetAndLevelOptions(t *testing.T) {
	sink, p, tracer := setup(t, WithTarget("payments"), WithLevel(testspan.LevelDebug))

	ctx, outer := tracer.Start(context.Background(), "outer")
	_, inner := tracer.Start(ctx, "inner")
	inner.End()
	outer.End()

	id, _ := p.SpanID(outer.SpanContext())
	assert.Equal(t, "payments::outer", sink.SpansForRoot(id, testspan.NewFilter(testspan.LevelInfo)).Name)
	assert.Empty(t, sink.SpansForRoot(id, testspan.NewFilter(testspan.LevelInfo)).Children)
	assert.Len(t, sink.SpansForRoot(id, testspan.NewFilter(testspan.LevelDebug)).Children, 1)
}

func TestValueConversion(t *testing.T) {
	assert.Equal(t, testspan.Bool(true), Value(attribute.BoolValue(true)))
	assert.Equal(t, testspan.Float64(1.5), Value(attribute.Float64Value(1.5)))
	assert.Equal(t, testspan.Debug(`["a","b"]`), Value(attribute.StringSliceValue([]string{"a", "b"})))
}

func TestLifecycleNoops(t *testing.T) {
	p := NewProcessor(testspan.New())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))

	_, ok := p.SpanID(trace.SpanContext{})
	assert.False(t, ok)
}

func TestContextNestsTestspanSpans(t *testing.T) {
	sink, p, tracer := setup(t)

	ctx, span := tracer.Start(context.Background(), "handler")
	ctx = p.Context(ctx)
	_, inner := sink.StartSpan(ctx, testspan.Metadata{Name: "inner", Target: "tests", Level: testspan.LevelInfo})
	inner.Finish()
	span.End()

	id, ok := p.SpanID(span.SpanContext())
	require.True(t, ok)
	assert.Equal(t, id, testspan.SpanIDFromContext(ctx))

	_, found := sink.SpansForRoot(id, testspan.NewFilter(testspan.LevelInfo)).Find("tests::inner")
	assert.True(t, found)

	plain := context.Background()
	assert.Equal(t, plain, p.Context(plain))
}
