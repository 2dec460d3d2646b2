// Package testspan captures spans and log events emitted while tests run and
// rebuilds, per test, the filtered span tree and log stream.
//
// Many tests share one process-wide Sink. Every span created without an
// active parent starts its own DAG, and every query is answered from the DAG
// of the requested span only, so concurrently running tests never see each
// other's spans or logs.
//
// Core Components:.
//   - Sink: Captures span creation, field recording, log events and closes.
//   - ActiveSpan: Handle on an open span, carried through context.Context.
//   - Filter: Default level plus longest prefix target overrides.
//   - Report: Point-in-time snapshot answering span tree and log queries.
//   - Collector: Buffers closed spans for export.
//
// Basic Usage:.
//
//	sink := testspan.New()
//
//	ctx, root := sink.StartSpan(ctx, testspan.Metadata{Name: "root", Target: "pkg", Level: testspan.LevelInfo})
//	defer root.Finish()
//
//	// Child spans and events pick up the active span from the context.
//	childCtx, child := sink.StartSpan(ctx, testspan.Metadata{Name: "do_stuff", Target: "pkg", Level: testspan.LevelInfo})
//	child.RecordAny("number", 1)
//	sink.Event(childCtx, testspan.Metadata{Name: "event", Target: "pkg", Level: testspan.LevelInfo}, testspan.Message("done"))
//	child.Finish()
//
//	tree, logs := sink.TelemetryForRoot(root.ID(), testspan.NewFilter(testspan.LevelInfo))
//
// Thread Safety:.
//
// Sink and ActiveSpan are safe for concurrent use by multiple goroutines.
// Filters are immutable. Span trees and Records returned by queries are
// built fresh per call and owned by the caller.
//
// Failure Semantics:.
//
// Recording on, closing, or reporting on a span id the sink never issued
// means the registries disagree; the sink panics with an error wrapping
// ErrInconsistentState instead of returning a wrong report.
//
// Resource Cleanup:.
//
// Captured data lives until Sink.Reset is called.
package testspan
