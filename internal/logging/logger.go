// Package logging provides the leveled slog logger used across ncx and a
// step observer that traces integration progress.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/pyncx/ncx/internal/dynamo"
)

// LevelTrace is a custom slog level below Debug for per-step output.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a level name to a slog.Level.
// Supported values: "error", "warn", "info", "debug", "trace"
// (case-insensitive). Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// StepTracer logs every n-th integration step at trace level.
type StepTracer struct {
	logger *slog.Logger
	every  int
	count  int
}

func NewStepTracer(logger *slog.Logger, every int) *StepTracer {
	if every < 1 {
		every = 1
	}
	return &StepTracer{logger: logger, every: every}
}

func (s *StepTracer) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	s.count++
	if s.count%s.every != 0 {
		return
	}
	if !s.logger.Enabled(context.Background(), LevelTrace) {
		return
	}
	s.logger.Log(context.Background(), LevelTrace, "step",
		"n", s.count, "t", t, "x", []float64(x), "u", []float64(u))
}

func (s *StepTracer) Count() int { return s.count }
