package stencil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name           string
		level          slog.Level
		expectedOutput []string
		notExpected    []string
	}{
		{
			name:  "debug level shows all messages",
			level: slog.LevelDebug,
			expectedOutput: []string{
				"level=DEBUG", "msg=\"debug message\"",
				"level=INFO", "level=WARN", "level=ERROR",
			},
		},
		{
			name:           "info level hides debug messages",
			level:          slog.LevelInfo,
			expectedOutput: []string{"level=INFO", "level=WARN", "level=ERROR"},
			notExpected:    []string{"level=DEBUG", "debug message"},
		},
		{
			name:           "error level shows only errors",
			level:          slog.LevelError,
			expectedOutput: []string{"level=ERROR"},
			notExpected:    []string{"level=DEBUG", "level=INFO", "level=WARN"},
		},
		{
			name:        "off level shows nothing",
			level:       LevelOff,
			notExpected: []string{"level="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			logger.Error("error message")

			output := buf.String()
			for _, expected := range tt.expectedOutput {
				if !strings.Contains(output, expected) {
					t.Errorf("Expected output to contain %q, but it didn't.\nOutput: %s", expected, output)
				}
			}
			for _, notExpected := range tt.notExpected {
				if strings.Contains(output, notExpected) {
					t.Errorf("Expected output NOT to contain %q, but it did.\nOutput: %s", notExpected, output)
				}
			}
		})
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug)

	logger.With(slog.String("template", "t-1")).
		Info("template finalized", slog.Int("variables", 2), slog.String("name", "surat tugas"))

	output := buf.String()
	for _, field := range []string{"template=t-1", "variables=2", `name="surat tugas"`} {
		if !strings.Contains(output, field) {
			t.Errorf("Expected output to contain field %q, but it didn't.\nOutput: %s", field, output)
		}
	}
}

func TestSetLogger(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetLogger(NewLogger(&buf, slog.LevelDebug))
	Logger().Debug("custom logger in use")
	if !strings.Contains(buf.String(), "custom logger in use") {
		t.Errorf("package logger did not write to the custom logger: %q", buf.String())
	}

	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("SetLogger(nil) left no logger")
	}
	Logger().Error("discarded")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"off":     LevelOff,
		"unknown": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
