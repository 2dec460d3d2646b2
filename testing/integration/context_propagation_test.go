package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/zoobzio/testspan"
)

// TestCrossGoroutineContextPropagation verifies parent-child relationships
// across goroutine boundaries.
func TestCrossGoroutineContextPropagation(t *testing.T) {
	sink := testspan.New()
	closes := NewCloseRecorder(t, sink)

	ctx, parent := sink.StartSpan(context.Background(),
		testspan.Metadata{Name: "parent-operation", Target: "svc", Level: testspan.LevelInfo})

	var wg sync.WaitGroup
	childCount := 10
	for i := 0; i < childCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, child := sink.StartSpan(ctx,
				testspan.Metadata{Name: "child-operation", Target: "svc", Level: testspan.LevelInfo},
				testspan.Field("goroutine.index", idx))
			child.Finish()
		}(i)
	}
	wg.Wait()
	parent.Finish()

	closes.AssertCount(childCount + 1)
	for _, closed := range closes.All() {
		if closed.Root != parent.ID() {
			t.Errorf("Span %d closed under root %d, expected %d", closed.ID, closed.Root, parent.ID())
		}
	}

	tree := sink.SpansForRoot(parent.ID(), testspan.NewFilter(testspan.LevelInfo))
	if n := len(tree.Child("svc::child-operation")); n != childCount {
		t.Errorf("Expected %d child spans, found %d", childCount, n)
	}
}

// TestContextCancellationDoesNotAffectCapture checks that a canceled context
// still carries its span.
func TestContextCancellationDoesNotAffectCapture(t *testing.T) {
	sink := testspan.New()

	ctx, cancel := context.WithCancel(context.Background())
	ctx, span1 := sink.StartSpan(ctx, testspan.Metadata{Name: "operation-1", Target: "svc", Level: testspan.LevelInfo})
	ctx, span2 := sink.StartSpan(ctx, testspan.Metadata{Name: "operation-2", Target: "svc", Level: testspan.LevelInfo})

	cancel()
	_, span3 := sink.StartSpan(ctx, testspan.Metadata{Name: "operation-3", Target: "svc", Level: testspan.LevelInfo})
	sink.Event(ctx, testspan.Metadata{Name: "event", Target: "svc", Level: testspan.LevelWarn},
		testspan.Message("after cancel"))

	span3.Finish()
	span2.Finish()
	span1.Finish()

	tree, logs := sink.TelemetryForRoot(span1.ID(), testspan.NewFilter(testspan.LevelInfo))
	if err := VerifyChain(tree, "svc::operation-2", "svc::operation-3"); err != nil {
		t.Error(err)
	}
	if !logs.ContainsMessage("after cancel") {
		t.Error("Expected event recorded after cancellation")
	}
}

// TestNestedSinksDoNotMix starts a span on a second sink below a span of the
// first. The second sink must treat it as a new root.
func TestNestedSinksDoNotMix(t *testing.T) {
	first := testspan.New()
	second := testspan.New()

	ctx, outer := first.StartSpan(context.Background(), testspan.Metadata{Name: "outer", Target: "a", Level: testspan.LevelInfo})
	innerCtx, inner := second.StartSpan(ctx, testspan.Metadata{Name: "inner", Target: "b", Level: testspan.LevelInfo})
	_, leaf := first.StartSpan(innerCtx, testspan.Metadata{Name: "leaf", Target: "a", Level: testspan.LevelInfo})

	if second.RootCount() != 1 || first.RootCount() != 2 {
		t.Errorf("Expected roots first=2 second=1, got first=%d second=%d", first.RootCount(), second.RootCount())
	}
	if n := len(first.SpansForRoot(outer.ID(), testspan.NewFilter(testspan.LevelInfo)).Children); n != 0 {
		t.Errorf("Expected leaf not to attach to outer through a foreign span, got %d children", n)
	}
	_ = inner
	_ = leaf
}
