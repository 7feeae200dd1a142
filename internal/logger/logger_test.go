package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogger_IncludesStackAndServiceOnError(t *testing.T) {
	var buf bytes.Buffer
	log := NewTo(&buf, "test-service", "debug", "json")
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	var payload map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("invalid json log: %v\n%s", err, line)
	}
	if svc, ok := payload["service"].(string); !ok || svc != "test-service" {
		t.Fatalf("expected service=\"test-service\", got %v", payload["service"])
	}
	if payload["error"] != "boom" {
		t.Fatalf("expected error=boom, got %v", payload["error"])
	}
	if _, ok := payload["stack"]; !ok {
		t.Fatalf("expected stack field in %s", line)
	}
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := SetLevel(tt.in); got != tt.want {
			t.Errorf("SetLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if zerolog.GlobalLevel() != tt.want {
			t.Errorf("global level after %q = %v", tt.in, zerolog.GlobalLevel())
		}
	}
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	log := NewTo(&buf, "svc", "warn", "json")
	log.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Warn().Msg("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("warn missing from output %q", buf.String())
	}
}
