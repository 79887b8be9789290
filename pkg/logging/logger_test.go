package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
	if cfg.Service != "itempager" {
		t.Errorf("Expected default service itempager, got %q", cfg.Service)
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name    string
		level   LogLevel
		emit    func(zerolog.Logger)
		visible bool
	}{
		{"debug_at_debug", LevelDebug, func(l zerolog.Logger) { l.Debug().Msg("probe") }, true},
		{"debug_at_info", LevelInfo, func(l zerolog.Logger) { l.Debug().Msg("probe") }, false},
		{"info_at_info", LevelInfo, func(l zerolog.Logger) { l.Info().Msg("probe") }, true},
		{"info_at_warn", LevelWarn, func(l zerolog.Logger) { l.Info().Msg("probe") }, false},
		{"warn_at_warn", LevelWarn, func(l zerolog.Logger) { l.Warn().Msg("probe") }, true},
		{"warn_at_error", LevelError, func(l zerolog.Logger) { l.Warn().Msg("probe") }, false},
		{"error_at_error", LevelError, func(l zerolog.Logger) { l.Error().Msg("probe") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			tt.emit(logger)

			if got := strings.Contains(buf.String(), "probe"); got != tt.visible {
				t.Errorf("message visible = %v, want %v (output %q)", got, tt.visible, buf.String())
			}
		})
	}
}

func TestSetup_ServiceField(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf, Service: "pager-test"})

	logger := NewLogger(ComponentPager)
	logger.Info().Dur("duration", 1500*time.Millisecond).Msg("Position settled")

	output := buf.String()
	for _, want := range []string{`"service":"pager-test"`, `"component":"pager"`, `"duration":1500`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got %q", want, output)
		}
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger := NewLogger(ComponentServer)
	logger.Info().Msg("Starting pager server")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("Expected console output, got JSON %q", output)
	}
	if !strings.Contains(output, "Starting pager server") {
		t.Errorf("Expected message in output, got %q", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if result := parseLevel(tt.input); result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestValidateLevel(t *testing.T) {
	for _, level := range []LogLevel{LevelDebug, LevelInfo, "Warning", LevelError} {
		if err := ValidateLevel(level); err != nil {
			t.Errorf("ValidateLevel(%q) = %v", level, err)
		}
	}
	if err := ValidateLevel("verbose"); err == nil {
		t.Error("ValidateLevel(verbose) should fail")
	}
}
