package logging

import (
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", "****"},
		{"short", "abc123", "****"},
		{"exactly eight", "12345678", "****"},
		{"long token", "r8_abcdefghijklmnop", "r8_a...mnop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeToken(tt.token)
			if got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
			if len(tt.token) > 8 && strings.Contains(got, tt.token[4:len(tt.token)-4]) {
				t.Error("sanitized token leaks the middle")
			}
		})
	}
}

func TestNewLoggerLevels(t *testing.T) {
	// Unknown levels fall back to info rather than failing startup.
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "verbose", ""} {
		if logger := NewLogger(level); logger == nil {
			t.Errorf("NewLogger(%q) = nil", level)
		}
	}
}
