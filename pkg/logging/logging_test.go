package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"nonsense", log.InfoLevel},
		{"", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestComponentSharesOutputAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Output: &buf})

	c := l.Component("sweep")
	if c.GetLevel() != log.WarnLevel {
		t.Errorf("component level = %v, want warn", c.GetLevel())
	}

	c.Info("below threshold")
	c.Warn("fee spike")

	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Error("info line written despite warn level")
	}
	if !strings.Contains(out, "fee spike") || !strings.Contains(out, "sweep") {
		t.Errorf("warn line missing prefix or message: %q", out)
	}
}
