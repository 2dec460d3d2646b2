package testspan

import (
	"context"
	"errors"
	"testing"
)

func TestInstallRejectsSecondSink(t *testing.T) {
	MustInit()
	installed := Default()

	if err := Install(installed); err != nil {
		t.Errorf("Expected reinstalling the same sink to succeed, got %v", err)
	}
	if err := Install(New()); !errors.Is(err, ErrSinkInstalled) {
		t.Errorf("Expected ErrSinkInstalled, got %v", err)
	}
	if err := Install(nil); err == nil {
		t.Error("Expected error for nil sink")
	}
	if Default() != installed {
		t.Error("Expected installed sink to be kept")
	}
}

func TestGlobalQueries(t *testing.T) {
	ctx, root := StartSpan(context.Background(), rootMeta)
	childCtx, child := StartSpan(ctx, childMeta, Field("n", 1))
	Event(childCtx, Metadata{Name: "event", Target: "tests", Level: LevelInfo}, Message("global"))
	child.Finish()
	root.Finish()

	filter := NewFilter(LevelInfo)
	tree, logs := GetTelemetryForRoot(root.ID(), filter)
	if len(tree.Children) != 1 {
		t.Errorf("Expected 1 child, got %d", len(tree.Children))
	}
	if !logs.ContainsMessage("global") || !logs.ContainsValue("n", Int(1)) {
		t.Error("Expected child fields and log")
	}
	if GetSpansForRoot(root.ID(), filter).Name != "tests::root" {
		t.Error("Expected root name")
	}
	if !GetLogsForRoot(root.ID(), filter).ContainsMessage("global") {
		t.Error("Expected log for root")
	}
	if !GetAllLogs(filter).ContainsMessage("global") {
		t.Error("Expected log in all logs")
	}
}

func TestGlobalHelpersFollowContextSink(t *testing.T) {
	local := New()
	ctx, root := local.StartSpan(context.Background(), rootMeta)

	childCtx, _ := StartSpan(ctx, childMeta)
	Event(childCtx, Metadata{Name: "event", Target: "tests", Level: LevelInfo}, Message("local"))

	logs := local.LogsForRoot(root.ID(), NewFilter(LevelInfo))
	if !logs.ContainsMessage("local") {
		t.Error("Expected event on the sink carried by the context")
	}
}
