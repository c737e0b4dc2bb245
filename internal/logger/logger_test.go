package logger

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"ERROR", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFieldsFromArgs(t *testing.T) {
	fields := fieldsFromArgs("file", "KestrelLog.0000000001", "checkpoint", int64(3))
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields["file"] != "KestrelLog.0000000001" {
		t.Errorf("file field = %v", fields["file"])
	}

	if fieldsFromArgs() != nil {
		t.Error("no args should produce nil fields")
	}

	// Odd trailing value is kept under a positional key
	fields = fieldsFromArgs("key", 1, "dangling")
	if len(fields) != 2 {
		t.Errorf("expected 2 fields for odd args, got %d", len(fields))
	}
}

func TestCleanFormatterOutput(t *testing.T) {
	f := &CleanFormatter{}
	entry := &logrus.Entry{
		Time:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "backup started",
		Data:    logrus.Fields{"home": "/data/db", "elapsed": "3ms"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	s := string(out)

	if !strings.Contains(s, "backup started") {
		t.Errorf("output missing message: %q", s)
	}
	if !strings.Contains(s, "home=/data/db") {
		t.Errorf("output missing field: %q", s)
	}
	if strings.Contains(s, "elapsed") {
		t.Errorf("elapsed field should be suppressed: %q", s)
	}
	if !strings.HasSuffix(s, "\n") {
		t.Error("output should end with newline")
	}
}

func TestNullLoggerIsSafe(t *testing.T) {
	var l Logger = NewNullLogger()
	l.Debug("x")
	l.Info("x", "k", "v")
	l.WithField("a", 1).Warn("x")
	op := l.StartOperation("noop")
	op.Update("u")
	op.Complete("c")
	op.Fail("f")
}
