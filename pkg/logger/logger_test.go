package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLoggerTo_LevelFilter(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantWarn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			if err := InitLoggerTo(&buf, tt.level, "text"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			log := For("VM")
			log.Debug("opcode", "op", "push_int")
			log.Warn("stack near limit", "depth", 900)

			out := buf.String()
			if got := strings.Contains(out, "opcode"); got != tt.wantDebug {
				t.Errorf("debug record written = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "stack near limit"); got != tt.wantWarn {
				t.Errorf("warn record written = %v, want %v", got, tt.wantWarn)
			}
			if tt.wantWarn && !strings.Contains(out, "subsystem=VM") {
				t.Errorf("missing subsystem attribute: %s", out)
			}
		})
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	if err := InitLogger("verbose"); err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}

func TestGetLogger_BeforeInit(t *testing.T) {
	// globalLoggerをリセット
	globalLogger = nil

	if GetLogger() != slog.Default() {
		t.Error("GetLogger() should return slog.Default() when not initialized")
	}
}

func TestInitLoggerTo_SetsDefault(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerTo(&buf, "info", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if GetLogger() != globalLogger || slog.Default() != globalLogger {
		t.Error("initialized logger is not the global and slog default logger")
	}

	slog.Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("slog.Default does not write to the configured writer: %q", buf.String())
	}
}

func TestInitLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerTo(&buf, "debug", "json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	For("SCRIPT").Info("hello", "pc", 3)

	out := buf.String()
	if !strings.Contains(out, `"subsystem":"SCRIPT"`) {
		t.Errorf("missing subsystem attribute: %s", out)
	}
	if !strings.Contains(out, `"pc":3`) {
		t.Errorf("missing pc attribute: %s", out)
	}
}

func TestInitLoggerTo_InvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerTo(&buf, "info", "xml"); err == nil {
		t.Error("expected error for invalid log format, got nil")
	}
}

func TestParseLevel_CaseInsensitive(t *testing.T) {
	level, err := ParseLevel("WARN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level != slog.LevelWarn {
		t.Errorf("ParseLevel(WARN) = %v, want %v", level, slog.LevelWarn)
	}
}
