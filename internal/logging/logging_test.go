package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewConsoleText(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := newWithConsole(Config{Level: "warn"}, &buf)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "chat_id", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "chat_id=abc") {
		t.Errorf("expected text attrs, got: %s", out)
	}
}

func TestNewWithFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "bridge.log")
	logger, closer := newWithConsole(Config{Level: "info", JSON: true, File: path}, &buf)

	logger.Info("to both")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to both"`) {
		t.Errorf("file missing record: %s", data)
	}
	if !strings.Contains(buf.String(), `"msg":"to both"`) {
		t.Errorf("console missing record: %s", buf.String())
	}
}

func TestWithChat(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	WithChat(base, "chat-42").Info("hello")
	if !strings.Contains(buf.String(), "chat_id=chat-42") {
		t.Errorf("expected chat_id in output, got: %s", buf.String())
	}
	if WithChat(nil, "x") != nil {
		t.Error("WithChat(nil, ...) should return nil")
	}
}
