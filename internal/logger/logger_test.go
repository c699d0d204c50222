package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// helper to close non-nil closers and ignore errors
func closeIf(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"trace": LevelTrace,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{}).Validate(); err != nil {
		t.Fatalf("zero config should be valid: %v", err)
	}
	if err := (Config{Format: "xml"}).Validate(); err == nil {
		t.Fatalf("expected format error")
	}
	if err := (Config{Color: "sometimes"}).Validate(); err == nil {
		t.Fatalf("expected color error")
	}
	if _, _, err := (Config{Level: "nope"}).New(io.Discard); err == nil {
		t.Fatalf("New should reject invalid config")
	}
}

func TestWriter_DefaultsToFallback(t *testing.T) {
	var buf bytes.Buffer
	w, c := Config{}.Writer(&buf)
	if w != &buf || c != nil {
		t.Fatalf("expected fallback writer and nil closer")
	}
}

func TestWriter_FileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guard.log")
	w, c := Config{File: FileConfig{Path: path}}.Writer(io.Discard)
	defer closeIf(c)
	l, ok := w.(*lj.Logger)
	if !ok {
		t.Fatalf("writer is not lumberjack.Logger")
	}
	if l.MaxSize != 10 || l.MaxBackups != 3 || l.MaxAge != 7 || l.Compress {
		t.Fatalf("unexpected defaults: size=%d backups=%d age=%d", l.MaxSize, l.MaxBackups, l.MaxAge)
	}
}

func TestWriter_FileOverrides(t *testing.T) {
	cfg := Config{File: FileConfig{Path: "x", MaxSizeMB: 1, MaxBackups: 9, MaxAgeDays: 11, Compress: true}}
	w, c := cfg.Writer(io.Discard)
	defer closeIf(c)
	l := w.(*lj.Logger)
	if l.MaxSize != 1 || l.MaxBackups != 9 || l.MaxAge != 11 || !l.Compress {
		t.Fatalf("unexpected overrides: size=%d backups=%d age=%d compress=%t", l.MaxSize, l.MaxBackups, l.MaxAge, l.Compress)
	}
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guard.log")
	log, c, err := Config{File: FileConfig{Path: path}}.New(os.Stdout)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("hello", slog.String("name", "echosvc"))
	closeIf(c)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "hello") || !strings.Contains(s, "name=echosvc") || !strings.Contains(s, "component=procguard") {
		t.Fatalf("unexpected log content: %s", s)
	}
}

func TestNew_JSONAndTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := Config{Level: "trace", Format: FormatJSON}.New(&buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Log(t.Context(), LevelTrace, "probe")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec["level"] != "TRACE" || rec["msg"] != "probe" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, _, _ := Config{Level: "warn", Color: ColorNever}.New(&buf)
	log.Info("quiet")
	log.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Fatalf("level filter not applied: %s", buf.String())
	}
}

func TestColorTextHandler(t *testing.T) {
	var buf bytes.Buffer
	log, _, _ := Config{Color: ColorAlways}.New(&buf)
	log.With(slog.String("name", "svc")).Error("boom")
	s := buf.String()
	if !strings.Contains(s, "\033[31mERROR\033[0m") {
		t.Fatalf("missing colored level: %q", s)
	}
	if !strings.Contains(s, "name=svc") {
		t.Fatalf("bound attrs lost: %q", s)
	}
	if strings.Contains(s, "level=") {
		t.Fatalf("level attr should be folded into message: %q", s)
	}
}

func TestColorAutoOffForBuffers(t *testing.T) {
	var buf bytes.Buffer
	log, _, _ := Config{}.New(&buf)
	log.Info("plain")
	if strings.Contains(buf.String(), "\033[") {
		t.Fatalf("auto color must be off for non-terminals: %q", buf.String())
	}
}
