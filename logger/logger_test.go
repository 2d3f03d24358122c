package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := &Config{
		Level:  "invalid-level",
		Format: "json",
		Output: "stdout",
	}
	l := New(cfg, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "json"}, &buf, "kbuild")
	l.WithComponent("toolchain").Info("stage completed", Fields(FieldStage, "compile", FieldExitCode, 0))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "stage completed" {
		t.Errorf("unexpected message %v", entry["message"])
	}
	if entry[FieldComponent] != "toolchain" {
		t.Errorf("expected component=toolchain, got %v", entry[FieldComponent])
	}
	if entry[FieldStage] != "compile" {
		t.Errorf("expected stage=compile, got %v", entry[FieldStage])
	}
}

func TestNewWithWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "warn", Format: "json"}, &buf, "kbuild")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestWithContextBuildID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "json"}, &buf, "kbuild")
	ctx := ContextWithBuildID(context.Background(), "b-123")
	if got := BuildIDFromContext(ctx); got != "b-123" {
		t.Fatalf("expected build id b-123, got %q", got)
	}
	l.WithContext(ctx).Info("x")
	if !strings.Contains(buf.String(), `"build_id":"b-123"`) {
		t.Errorf("expected build_id field, got %q", buf.String())
	}
}

func TestWithContextWithoutBuildID(t *testing.T) {
	l := NewDefault("test")
	if l.WithContext(context.Background()) != l {
		t.Error("expected the same logger when context has no build id")
	}
}

func TestWithComponent(t *testing.T) {
	l := NewDefault("test")
	cl := l.WithComponent("handler")
	if cl == nil {
		t.Fatal("expected non-nil logger")
	}
	if cl.service != "test" {
		t.Errorf("service should be preserved, got %q", cl.service)
	}
}

func TestWithError(t *testing.T) {
	l := NewDefault("test")
	el := l.WithError(nil)
	if el == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInit(t *testing.T) {
	Init(&Config{Level: "info", Format: "console", Output: "stderr", ServiceName: "kbuild"})
	gl := GetGlobalLogger()
	if gl == nil {
		t.Fatal("expected global logger to be set after Init")
	}
	if gl.service != "kbuild" {
		t.Errorf("expected service kbuild, got %q", gl.service)
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	globalLogger = nil
	l := GetGlobalLogger()
	if l == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	Init(&Config{Level: "debug", Format: "console", Output: "stderr"})
	// These should not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
	if WithComponent("x") == nil || WithContext(context.Background()) == nil {
		t.Fatal("expected package-level helpers to return loggers")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected output 'stderr', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"valid pretty", Config{Level: "warn", Format: "pretty"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConsoleLoggerNoColor(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, &buf, "kbuild")
	l.Info("linking")
	out := buf.String()
	if !strings.Contains(out, "[KBU][INF]") {
		t.Errorf("expected service and level tag, got %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("expected no color escapes, got %q", out)
	}
}

func TestLevelTag(t *testing.T) {
	if got := levelTag("ERROR", true); got != "[ERR]" {
		t.Errorf("unexpected tag %q", got)
	}
	if got := levelTag("TRACE", true); got != "[TRACE]" {
		t.Errorf("unexpected fallback tag %q", got)
	}
	if got := levelTag("INFO", false); !strings.HasPrefix(got, "\033[32m") {
		t.Errorf("expected green info tag, got %q", got)
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("custom-component")
	Register("my-component", l)

	if Get("my-component") != l {
		t.Error("expected Get to return the registered logger")
	}
}

func TestGetUnregistered(t *testing.T) {
	if Get("unregistered-component") == nil {
		t.Fatal("expected non-nil logger for unregistered component")
	}
}

func TestRegisterDefaults(t *testing.T) {
	Init(&Config{Level: "info", Format: "json", Output: "stderr"})
	RegisterDefaults("toolchain", "build", "staleness")

	for _, name := range []string{"toolchain", "build", "staleness"} {
		if Get(name) == nil {
			t.Errorf("expected non-nil logger for %q", name)
		}
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{
			"key-value pairs",
			[]interface{}{"stage", "link", "objects", 42},
			map[string]interface{}{"stage": "link", "objects": 42},
		},
		{
			"odd number of args",
			[]interface{}{"stage", "link", "trailing"},
			map[string]interface{}{"stage": "link"},
		},
		{
			"non-string key skipped",
			[]interface{}{123, "value", "key", "val"},
			map[string]interface{}{"key": "val"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fields(tc.input...)
			if len(result) != len(tc.expected) {
				t.Fatalf("expected %d fields, got %d", len(tc.expected), len(result))
			}
			for k, v := range tc.expected {
				if result[k] != v {
					t.Errorf("Fields[%q] = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	fields := ErrorFields("archive", fmt.Errorf("ar: no such file"))
	if fields[FieldOperation] != "archive" {
		t.Errorf("expected operation 'archive', got %v", fields[FieldOperation])
	}
	if fields[FieldError] != "ar: no such file" {
		t.Errorf("unexpected error field %v", fields[FieldError])
	}
}

func TestDurationFields(t *testing.T) {
	fields := DurationFields("link", 150*time.Millisecond)
	if fields[FieldDuration] != int64(150) {
		t.Errorf("expected duration 150, got %v", fields[FieldDuration])
	}
}

func TestMergeWithErrorAndDuration(t *testing.T) {
	result := MergeWithError(map[string]interface{}{"stage": "cc"}, fmt.Errorf("test error"))
	if result[FieldError] != "test error" || result["stage"] != "cc" {
		t.Errorf("unexpected merge result %v", result)
	}
	if MergeWithError(nil, fmt.Errorf("e"))[FieldError] != "e" {
		t.Error("expected error field from nil map")
	}
	if MergeWithDuration(nil, 200*time.Millisecond)[FieldDuration] != int64(200) {
		t.Error("expected duration field from nil map")
	}
}

