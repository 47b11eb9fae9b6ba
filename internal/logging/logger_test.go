package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/pyncx/ncx/internal/dynamo"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"warn", "warn", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Trace", "Trace", LevelTrace},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info message missing")
	}
}

func TestTraceLevelLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	tr := NewStepTracer(logger, 2)

	for i := 1; i <= 4; i++ {
		tr.OnStep(dynamo.State{0.7, 0.2, 0.01}, dynamo.Control{0, 2}, float64(i)*0.003)
	}

	out := buf.String()
	if got := strings.Count(out, "msg=step"); got != 2 {
		t.Errorf("expected 2 traced steps, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "level=TRACE") {
		t.Errorf("trace level not labelled:\n%s", out)
	}
	if tr.Count() != 4 {
		t.Errorf("Count() = %d, want 4", tr.Count())
	}
}

func TestStepTracerSilentAboveTrace(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStepTracer(NewLogger("debug", &buf), 1)
	tr.OnStep(dynamo.State{1}, dynamo.Control{0}, 0.1)
	if buf.Len() != 0 {
		t.Errorf("unexpected output at debug level: %s", buf.String())
	}
}
