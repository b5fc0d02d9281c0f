package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/logger"
)

func TestSpanTree(t *testing.T) {
	ctx := logger.WithRunID(context.Background(), "run-42")
	ctx, root := Start(ctx, "evaluate")

	childCtx, load := Start(ctx, "load")
	load.SetAttr("documents", 3)
	time.Sleep(time.Millisecond)
	load.End()
	load.End()
	first := load.Duration

	_, score := Start(childCtx, "score")
	score.End()
	root.End()

	if root.TraceID != "run-42" || load.TraceID != "run-42" || score.TraceID != "run-42" {
		t.Errorf("trace IDs = %q %q %q", root.TraceID, load.TraceID, score.TraceID)
	}
	if first <= 0 || load.Duration != first {
		t.Errorf("duration = %v, first = %v", load.Duration, first)
	}
	if len(root.Children()) != 1 || len(load.Children()) != 1 {
		t.Fatalf("tree shape wrong: root %d, load %d", len(root.Children()), len(load.Children()))
	}
	if FromContext(childCtx) != load {
		t.Error("FromContext should return the innermost span")
	}

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)))
	out := buf.String()
	if strings.Count(out, "msg=span") != 3 || !strings.Contains(out, "documents=3") {
		t.Errorf("log output:\n%s", out)
	}
}

func TestNilSpan(t *testing.T) {
	var s *Span
	s.SetAttr("k", "v")
	s.End()
	s.Log(nil)
	if FromContext(context.Background()) != nil {
		t.Error("empty context should have no span")
	}
}
