package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendGenAI  = "genai"
	BackendOllama = "ollama"
)

type Config struct {
	Port   int
	DBPath string
	APIKey string
	// Upstream conversation
	UpstreamBackend     string
	GeminiAPIKey        string
	ModelName           string
	OllamaBaseURL       string
	OllamaModel         string
	UpstreamTimeout     time.Duration
	UpstreamInitTimeout time.Duration
	// Modes
	ModesDir    string
	DefaultMode string
	// Completions rate limit
	CompletionsRPS   float64
	CompletionsBurst int
	// Static UI, served at / when set
	StaticDir string
	// Logging
	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	// Clients (CLI, MCP adapter, TUI)
	BridgeServerURL string
	// MarkdownStyle is the glamour style the TUI renders replies with.
	MarkdownStyle string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                envInt("PORT", 8050),
		DBPath:              envStr("BRIDGE_DB_PATH", "/data/bridge.db"),
		APIKey:              os.Getenv("API_KEY"),
		UpstreamBackend:     strings.ToLower(envStr("UPSTREAM_BACKEND", BackendGenAI)),
		GeminiAPIKey:        firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		ModelName:           envStr("MODEL_NAME", "gemini-2.5-flash"),
		OllamaBaseURL:       envStr("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:         envStr("OLLAMA_MODEL", "llama3.2"),
		UpstreamTimeout:     time.Duration(envInt("UPSTREAM_TIMEOUT_SECONDS", 120)) * time.Second,
		UpstreamInitTimeout: time.Duration(envInt("UPSTREAM_INIT_TIMEOUT_SECONDS", 30)) * time.Second,
		ModesDir:            os.Getenv("MODES_DIR"),
		DefaultMode:         envStr("DEFAULT_MODE", "Default"),
		CompletionsRPS:      envFloat("COMPLETIONS_RPS", 2),
		CompletionsBurst:    envInt("COMPLETIONS_BURST", 5),
		StaticDir:           os.Getenv("STATIC_DIR"),
		LogLevel:            envStr("LOG_LEVEL", "info"),
		LogFormat:           strings.ToLower(envStr("LOG_FORMAT", "json")),
		LogFile:             os.Getenv("LOG_FILE"),
		LogMaxSizeMB:        envInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups:       envInt("LOG_MAX_BACKUPS", 3),
		BridgeServerURL:     envStr("BRIDGE_SERVER_URL", "http://localhost:8050"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadClient reads only what the bridge clients need. It never fails on
// server-side settings.
func LoadClient() *Config {
	return &Config{
		APIKey:          os.Getenv("API_KEY"),
		BridgeServerURL: envStr("BRIDGE_SERVER_URL", "http://localhost:8050"),
		MarkdownStyle:   envStr("GLAMOUR_STYLE", "auto"),
	}
}

// Model returns the model name advertised to clients for the configured backend.
func (c *Config) Model() string {
	if c.UpstreamBackend == BackendOllama {
		return c.OllamaModel
	}
	return c.ModelName
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("BRIDGE_DB_PATH must not be empty")
	}
	switch c.UpstreamBackend {
	case BackendGenAI:
		if c.ModelName == "" {
			return fmt.Errorf("MODEL_NAME must not be empty")
		}
	case BackendOllama:
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("OLLAMA_BASE_URL must not be empty")
		}
	default:
		return fmt.Errorf("UPSTREAM_BACKEND must be %q or %q, got %q", BackendGenAI, BackendOllama, c.UpstreamBackend)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT_SECONDS must be positive, got %s", c.UpstreamTimeout)
	}
	if c.UpstreamInitTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_INIT_TIMEOUT_SECONDS must be positive, got %s", c.UpstreamInitTimeout)
	}
	if c.CompletionsRPS <= 0 {
		return fmt.Errorf("COMPLETIONS_RPS must be positive, got %f", c.CompletionsRPS)
	}
	if c.CompletionsBurst < 1 {
		return fmt.Errorf("COMPLETIONS_BURST must be at least 1, got %d", c.CompletionsBurst)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
