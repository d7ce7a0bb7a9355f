package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "BRIDGE_DB_PATH", "UPSTREAM_BACKEND", "MODEL_NAME", "LOG_FORMAT", "COMPLETIONS_RPS", "COMPLETIONS_BURST", "UPSTREAM_TIMEOUT_SECONDS", "UPSTREAM_INIT_TIMEOUT_SECONDS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8050 {
		t.Errorf("port = %d, want 8050", cfg.Port)
	}
	if cfg.UpstreamBackend != BackendGenAI {
		t.Errorf("backend = %q, want genai", cfg.UpstreamBackend)
	}
	if cfg.UpstreamTimeout != 120*time.Second {
		t.Errorf("timeout = %s", cfg.UpstreamTimeout)
	}
	if cfg.Model() != "gemini-2.5-flash" {
		t.Errorf("model = %q", cfg.Model())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("UPSTREAM_BACKEND", "Ollama")
	t.Setenv("OLLAMA_MODEL", "qwen2.5")
	t.Setenv("UPSTREAM_TIMEOUT_SECONDS", "5")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.Model() != "qwen2.5" {
		t.Errorf("model = %q, want qwen2.5", cfg.Model())
	}
	if cfg.UpstreamTimeout != 5*time.Second {
		t.Errorf("timeout = %s", cfg.UpstreamTimeout)
	}
	if cfg.GeminiAPIKey != "g-key" {
		t.Errorf("expected GOOGLE_API_KEY fallback, got %q", cfg.GeminiAPIKey)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("log format = %q", cfg.LogFormat)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad port", map[string]string{"PORT": "70000"}, "PORT"},
		{"unknown backend", map[string]string{"UPSTREAM_BACKEND": "bard"}, "UPSTREAM_BACKEND"},
		{"zero timeout", map[string]string{"UPSTREAM_TIMEOUT_SECONDS": "0"}, "UPSTREAM_TIMEOUT_SECONDS"},
		{"zero burst", map[string]string{"COMPLETIONS_BURST": "0"}, "COMPLETIONS_BURST"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestLoadClient(t *testing.T) {
	t.Setenv("BRIDGE_SERVER_URL", "http://bridge:8050")
	t.Setenv("API_KEY", "secret")
	t.Setenv("PORT", "not-validated")
	t.Setenv("GLAMOUR_STYLE", "")

	cfg := LoadClient()
	if cfg.BridgeServerURL != "http://bridge:8050" || cfg.APIKey != "secret" {
		t.Errorf("unexpected client config: %+v", cfg)
	}
	if cfg.MarkdownStyle != "auto" {
		t.Errorf("MarkdownStyle = %q, want auto", cfg.MarkdownStyle)
	}
}
