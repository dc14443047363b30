package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %s, want %s", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelDebug)

	l.Debug("worker-1", "debug message")
	l.Info("worker-1", "info message")
	l.Warn("worker-1", "warn message")
	l.Error("worker-1", "error message")

	output := buf.String()

	for _, want := range []string{"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]", "[worker-1]"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output", want)
		}
	}
}

func TestLoggerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelWarn)

	l.Debug("", "debug message")
	l.Info("", "info message")
	l.Warn("", "warn message")
	l.Error("", "error message")

	output := buf.String()

	if strings.Contains(output, "[DEBUG]") {
		t.Error("DEBUG should be filtered")
	}
	if strings.Contains(output, "[INFO]") {
		t.Error("INFO should be filtered")
	}
	if !strings.Contains(output, "[WARN]") {
		t.Error("expected WARN log")
	}
	if !strings.Contains(output, "[ERROR]") {
		t.Error("expected ERROR log")
	}
}

func TestLoggerSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelError)

	l.Info("", "should not appear")
	if l.Enabled(LevelInfo) {
		t.Error("INFO should not be enabled at ERROR level")
	}

	if strings.Contains(buf.String(), "should not appear") {
		t.Error("INFO should be filtered at ERROR level")
	}

	l.SetLevel(LevelInfo)
	l.Info("", "should appear")

	if !strings.Contains(buf.String(), "should appear") {
		t.Error("INFO should appear after SetLevel")
	}
}

func TestLoggerSetOutput(t *testing.T) {
	first := &bytes.Buffer{}
	second := &bytes.Buffer{}
	l := New(first, LevelInfo)

	l.SetOutput(second)
	l.Info("", "redirected")

	if first.Len() != 0 {
		t.Error("expected nothing written to the original output")
	}
	if !strings.Contains(second.String(), "redirected") {
		t.Error("expected message in the new output")
	}
}

func TestLoggerWithoutComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelInfo)

	l.Info("", "message without component")

	output := buf.String()

	// Should not have empty brackets
	if strings.Contains(output, "[]") {
		t.Error("should not have empty brackets for component")
	}
	if !strings.Contains(output, "message without component") {
		t.Error("expected message in output")
	}
}

func TestScopedLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelDebug)

	pool := l.Named("pool-1")
	w := pool.Named("worker-3")

	if w.Component() != "pool-1/worker-3" {
		t.Errorf("expected nested component name, got %q", w.Component())
	}

	w.Debug("online")
	w.Info("count: %d", 7)
	pool.Warn("abandoned")
	pool.Error("failed")

	output := buf.String()
	if !strings.Contains(output, "[pool-1/worker-3] online") {
		t.Errorf("expected scoped debug line, got: %s", output)
	}
	if !strings.Contains(output, "[pool-1/worker-3] count: 7") {
		t.Errorf("expected formatted scoped line, got: %s", output)
	}
	if !strings.Contains(output, "[WARN] [pool-1] abandoned") {
		t.Errorf("expected pool warn line, got: %s", output)
	}
}

func TestScopedEmptyComponent(t *testing.T) {
	l := New(&bytes.Buffer{}, LevelInfo)

	child := l.Named("").Named("worker-0")
	if child.Component() != "worker-0" {
		t.Errorf("expected child without leading slash, got %q", child.Component())
	}
}
