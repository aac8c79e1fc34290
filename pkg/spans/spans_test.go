package spans_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arthur-debert/beout/pkg/activity"
	"github.com/arthur-debert/beout/pkg/config"
	"github.com/arthur-debert/beout/pkg/display"
	"github.com/arthur-debert/beout/pkg/spans"
	"github.com/arthur-debert/beout/pkg/status"
	"github.com/arthur-debert/beout/pkg/terminal"
)

func openSession(t *testing.T) (*display.Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.FrameMS = 20
	s, err := display.Open(context.Background(), "trace",
		display.WithConfig(cfg),
		display.WithTerminal(terminal.New(&buf)),
		display.WithRootAutoClose(false),
	)
	require.NoError(t, err)
	t.Cleanup(s.Cancel)
	return s, &buf
}

func find(t *testing.T, snap activity.Snapshot, label string) activity.Node {
	t.Helper()
	for _, n := range snap.Nodes {
		if n.Label == label {
			return n
		}
	}
	t.Fatalf("no activity labelled %q", label)
	return activity.Node{}
}

func TestSpansBecomeActivities(t *testing.T) {
	s, _ := openSession(t)
	tp := spans.NewTracerProvider(s, zerolog.Nop())
	tracer := tp.Tracer("test")

	ctx, deploy := tracer.Start(context.Background(), "deploy")
	_, build := tracer.Start(ctx, "build", trace.WithAttributes(spans.DetailKey.String("go 1.25")))

	snap := s.Snapshot()
	assert.Equal(t, status.Running, find(t, snap, "deploy").Status)
	b := find(t, snap, "build")
	assert.Equal(t, status.Running, b.Status)
	assert.Equal(t, 2, b.Depth, "nested under the parent span")

	build.End()
	assert.Equal(t, status.Running, find(t, s.Snapshot(), "deploy").Status, "open until its own span ends")
	_, push := tracer.Start(ctx, "push")
	spans.Log(push, "uploading layer 1")
	spans.Log(push, "uploading layer 2")
	push.SetStatus(codes.Error, " connection refused ")
	push.End()
	deploy.End()

	require.NoError(t, tp.Shutdown(context.Background()))
	snap = s.Snapshot()

	assert.Equal(t, status.Succeeded, find(t, snap, "build").Status)
	assert.Equal(t, "go 1.25", find(t, snap, "build").Detail)

	p := find(t, snap, "push")
	assert.Equal(t, status.Failed, p.Status)
	assert.Equal(t, "connection refused", p.Reason)
	assert.Equal(t, []string{"uploading layer 1", "uploading layer 2"}, p.LogTail)

	d := find(t, snap, "deploy")
	assert.Equal(t, status.Failed, d.Status, "a failed child span fails its parent")
	assert.Empty(t, d.Reason)
	assert.Equal(t, status.Running, snap.Root().Status, "session root stays open")
}

func TestParentSpanOutlivesChildren(t *testing.T) {
	s, _ := openSession(t)
	tp := spans.NewTracerProvider(s, zerolog.Nop())
	tracer := tp.Tracer("test")

	ctx, release := tracer.Start(context.Background(), "release")
	for _, name := range []string{"lint", "test", "package"} {
		_, step := tracer.Start(ctx, name)
		step.End()
	}
	assert.Equal(t, status.Running, find(t, s.Snapshot(), "release").Status)
	release.End()

	snap := s.Snapshot()
	assert.Len(t, snap.Nodes, 5)
	for _, label := range []string{"lint", "test", "package", "release"} {
		assert.Equal(t, status.Succeeded, find(t, snap, label).Status, label)
	}
}

func TestSiblingRootSpans(t *testing.T) {
	s, buf := openSession(t)
	tp := spans.NewTracerProvider(s, zerolog.Nop())
	tracer := tp.Tracer("test")

	_, a := tracer.Start(context.Background(), "a")
	a.End()
	_, b := tracer.Start(context.Background(), "")
	b.End()

	require.NoError(t, s.Close(nil))
	snap := s.Snapshot()
	assert.Len(t, snap.Nodes, 3)
	assert.Equal(t, 1, find(t, snap, "a").Depth)
	assert.Equal(t, 1, find(t, snap, "unnamed").Depth)
	assert.Contains(t, buf.String(), "[succeeded] a (")
}

func TestSpansAfterCloseAreIgnored(t *testing.T) {
	s, _ := openSession(t)
	tp := spans.NewTracerProvider(s, zerolog.Nop())
	require.NoError(t, s.Close(nil))

	_, span := tp.Tracer("test").Start(context.Background(), "late")
	span.End()
	assert.Len(t, s.Snapshot().Nodes, 1)
}
