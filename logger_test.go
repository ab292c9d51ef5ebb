package g3d

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/g3d/backend/software"
)

func TestDefaultLoggerSilent(t *testing.T) {
	SetLogger(nil)
	if Logger().Enabled(t.Context(), slog.LevelError) {
		t.Error("default logger should be disabled")
	}
}

func TestContextLogsWithID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, err := New(WithAdapter(software.New(4, 4)), WithSize(4, 4), WithLogger(l))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer ctx.Close()

	out := buf.String()
	if !strings.Contains(out, "context created") {
		t.Errorf("log = %q, want creation record", out)
	}
	if !strings.Contains(out, "context="+ctx.ID().String()) {
		t.Errorf("log = %q, want context id %s", out, ctx.ID())
	}
}

func TestSetLoggerUsedByNewContexts(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer SetLogger(nil)

	ctx, err := New(WithAdapter(software.New(4, 4)), WithSize(4, 4))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_ = ctx.Close()
	if !strings.Contains(buf.String(), "context closed") {
		t.Errorf("log = %q, want close record", buf.String())
	}
}
