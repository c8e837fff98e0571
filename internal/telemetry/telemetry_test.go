package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":  slog.LevelDebug,
		"debug":  slog.LevelDebug,
		"WARN":   slog.LevelWarn,
		"ERROR":  slog.LevelError,
		"INFO+2": slog.LevelInfo + 2,
		"":       slog.LevelInfo,
		"bogus":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "json")

	WithStage(WithRunID(logger, "r1"), 2, 1).Info("phase complete")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if rec["run_id"] != "r1" || rec["stage"] != float64(2) || rec["phase"] != float64(1) {
		t.Errorf("missing attributes: %v", rec)
	}
}

func TestNewLogger_TextLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn, "text")

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestFromContext(t *testing.T) {
	// Без логгера — глобальный
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger")
	}

	logger := NewLogger(&bytes.Buffer{}, slog.LevelInfo, "json")
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
}

func TestMetrics_Counters(t *testing.T) {
	before := testutil.ToFloat64(TasksSubmitted.WithLabelValues("train"))
	TasksSubmitted.WithLabelValues("train").Inc()
	if got := testutil.ToFloat64(TasksSubmitted.WithLabelValues("train")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}
