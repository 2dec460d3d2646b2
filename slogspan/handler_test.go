package slogspan

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/testspan"
)

var rootMeta = testspan.Metadata{Name: "root", Target: "tests", Level: testspan.LevelInfo}

func names(records testspan.Records) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestHandlerRecordsUnderContextSpan(t *testing.T) {
	sink := testspan.New()
	ctx, root := sink.StartSpan(context.Background(), rootMeta)
	childCtx, child := sink.StartSpan(ctx, testspan.Metadata{Name: "child", Target: "tests", Level: testspan.LevelInfo})

	logger := slog.New(NewHandler(sink, Options{Target: "app"}))
	logger.InfoContext(childCtx, "inside child", "user", "ana", "attempt", 2)
	logger.InfoContext(context.Background(), "outside")
	child.Finish()
	root.Finish()

	tree := sink.SpansForRoot(root.ID(), testspan.NewFilter(testspan.LevelInfo))
	inner, ok := tree.Find("tests::child")
	require.True(t, ok)
	assert.True(t, inner.Fields().ContainsMessage("inside child"))
	assert.True(t, inner.Fields().ContainsValue("user", testspan.String("ana")))
	assert.True(t, inner.Fields().ContainsValue("attempt", testspan.Int64(2)))

	assert.False(t, sink.LogsForRoot(root.ID(), testspan.NewFilter(testspan.LevelInfo)).ContainsMessage("outside"))
	assert.True(t, sink.AllLogs(testspan.NewFilter(testspan.LevelInfo)).ContainsMessage("outside"))
}

func TestGroupsAndWithAttrs(t *testing.T) {
	sink := testspan.New()
	ctx, root := sink.StartSpan(context.Background(), rootMeta)

	logger := slog.New(NewHandler(sink, Options{})).
		With("request", "r-1").
		WithGroup("http").
		With("method", "GET")
	logger.WarnContext(ctx, "slow",
		"status", 504,
		slog.Group("timing", slog.Duration("total", 2*time.Second)),
		slog.Group("empty"),
	)

	logs := sink.LogsForRoot(root.ID(), testspan.NewFilter(testspan.LevelInfo))
	assert.Equal(t,
		[]string{testspan.MessageField, "request", "http.method", "http.status", "http.timing.total"},
		names(logs))
	assert.True(t, logs.ContainsValue("http.timing.total", testspan.Debug("2s")))
}

func TestTargetFiltering(t *testing.T) {
	sink := testspan.New()
	ctx, root := sink.StartSpan(context.Background(), rootMeta)

	slog.New(NewHandler(sink, Options{Target: "db.pool"})).InfoContext(ctx, "pooled")
	slog.New(NewHandler(sink, Options{})).InfoContext(ctx, "default target")

	filter := testspan.NewFilter(testspan.LevelInfo).WithTarget("db", testspan.LevelError)
	logs := sink.LogsForRoot(root.ID(), filter)
	assert.False(t, logs.ContainsMessage("pooled"))
	assert.True(t, logs.ContainsMessage("default target"))
}

func TestLevelMapping(t *testing.T) {
	assert.Equal(t, testspan.LevelTrace, Level(slog.LevelDebug-4))
	assert.Equal(t, testspan.LevelDebug, Level(slog.LevelDebug))
	assert.Equal(t, testspan.LevelInfo, Level(slog.LevelInfo))
	assert.Equal(t, testspan.LevelWarn, Level(slog.LevelWarn))
	assert.Equal(t, testspan.LevelError, Level(slog.LevelError+4))
}

func TestEnabledHonorsMinimum(t *testing.T) {
	h := NewHandler(testspan.New(), Options{Level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	all := NewHandler(testspan.New(), Options{})
	assert.True(t, all.Enabled(context.Background(), slog.LevelDebug-8))
}

func TestForeignSinkSpanIgnored(t *testing.T) {
	other := testspan.New()
	ctx, _ := other.StartSpan(context.Background(), rootMeta)

	sink := testspan.New()
	slog.New(NewHandler(sink, Options{})).InfoContext(ctx, "orphan")

	assert.True(t, sink.AllLogs(testspan.NewFilter(testspan.LevelInfo)).ContainsMessage("orphan"))
	assert.Empty(t, other.AllLogs(testspan.NewFilter(testspan.LevelInfo)))
}

func TestNilSinkFollowsContext(t *testing.T) {
	sink := testspan.New()
	ctx, root := sink.StartSpan(context.Background(), rootMeta)

	slog.New(NewHandler(nil, Options{})).InfoContext(ctx, "followed")

	assert.True(t, sink.LogsForRoot(root.ID(), testspan.NewFilter(testspan.LevelInfo)).ContainsMessage("followed"))
}
