package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
ai:
  apiKey: file-key
  rewrite:
    schemaVersion: flat
    temperature: 0.9
server:
  port: "9000"
storage:
  backend: memory
session:
  secret: 0123456789abcdef0123456789abcdef
`)
	t.Setenv("RESUMEGENIUS_SERVER_HOST", "0.0.0.0")

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	if cfg.AI.APIKey != "file-key" {
		t.Errorf("api key = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != DefaultModel {
		t.Errorf("model = %q, want default %q", cfg.AI.Model, DefaultModel)
	}
	if cfg.Server.Port != "9000" || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server = %s:%s", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.StaticDir != "dist" {
		t.Errorf("static dir = %q", cfg.Server.StaticDir)
	}
	if cfg.Extract.MaxFileSize != 10*1024*1024 {
		t.Errorf("max file size = %d", cfg.Extract.MaxFileSize)
	}
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("ValidateServer: %v", err)
	}

	rw := cfg.GetRewriteConfig()
	if rw.SchemaVersion != SchemaFlat {
		t.Errorf("schema = %q", rw.SchemaVersion)
	}
	if *rw.Temperature != 0.9 {
		t.Errorf("rewrite temperature = %v", *rw.Temperature)
	}
	if !rw.CircuitBreaker.Enabled || rw.CircuitBreaker.MaxRequests != 3 {
		t.Errorf("circuit breaker defaults not applied: %+v", rw.CircuitBreaker)
	}
}

func TestLoadConfigGeminiKeyFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  logLevel: info\n")
	t.Setenv("GEMINI_API_KEY", "from-gemini-env")

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.AI.APIKey != "from-gemini-env" {
		t.Errorf("api key = %q", cfg.AI.APIKey)
	}
}

func TestLoadConfigMissingAPIKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  logLevel: info\n")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	if _, err := LoadConfigFile(path); err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("expected API key error, got %v", err)
	}
}

func TestGetAnalyzeConfigFallbacks(t *testing.T) {
	explicit := 5 * time.Second
	cfg := &Config{AI: AIConfig{
		Provider:         "gemini",
		Model:            "global-model",
		Timeout:          time.Minute,
		APIKey:           "global",
		Temperature:      0.7,
		UseSystemPrompts: true,
		CustomPrompts: PromptConfig{
			SystemPrompts: PromptSet{AnalyzeResume: "global system", RewriteResume: "rewrite system"},
		},
		Analyze: OperationAIConfig{
			Timeout:       &explicit,
			CustomPrompts: PromptConfig{UserPrompts: PromptSet{AnalyzeResume: "op user"}},
		},
	}}

	op := cfg.GetAnalyzeConfig()
	if op.Model != "global-model" || op.APIKey != "global" {
		t.Errorf("globals not applied: %+v", op)
	}
	if *op.Timeout != explicit {
		t.Errorf("explicit timeout lost: %v", *op.Timeout)
	}
	if *op.Temperature != 0.7 || !*op.UseSystemPrompts {
		t.Errorf("pointer defaults not applied")
	}
	if op.CustomPrompts.SystemPrompts.AnalyzeResume != "global system" {
		t.Errorf("system prompt fallback = %q", op.CustomPrompts.SystemPrompts.AnalyzeResume)
	}
	if op.CustomPrompts.UserPrompts.AnalyzeResume != "op user" {
		t.Errorf("user prompt = %q", op.CustomPrompts.UserPrompts.AnalyzeResume)
	}

	// the source config must not be mutated through the returned pointers
	*op.Temperature = 0.1
	if cfg.AI.Temperature != 0.7 {
		t.Errorf("global temperature mutated")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AI:      AIConfig{APIKey: "k", Timeout: time.Second},
			Server:  ServerConfig{Port: "8080", TLS: TLSConfig{Mode: "disabled"}},
			App:     AppConfig{DefaultFormat: "text", SupportedFormats: []string{"text", "json"}},
			Extract: ExtractConfig{MaxFileSize: 1024},
			Storage: StorageConfig{Backend: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no key", func(c *Config) { c.AI.APIKey = "" }, "API key"},
		{"bad format", func(c *Config) { c.App.DefaultFormat = "pdf" }, "invalid default format"},
		{"bad schema", func(c *Config) { c.AI.Rewrite.SchemaVersion = "xml" }, "schemaVersion"},
		{"redis without url", func(c *Config) { c.Storage.Backend = "redis" }, "storage.redis.url"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "dynamo" }, "invalid storage backend"},
		{"zero file size", func(c *Config) { c.Extract.MaxFileSize = 0 }, "maxFileSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateServer(t *testing.T) {
	secret := strings.Repeat("s", 32)
	tests := []struct {
		name    string
		session SessionConfig
		billing BillingConfig
		wantErr string
	}{
		{"ok", SessionConfig{Secret: secret, TTL: time.Hour}, BillingConfig{Provider: "none"}, ""},
		{"short secret", SessionConfig{Secret: "short", TTL: time.Hour}, BillingConfig{}, "at least 32 bytes"},
		{"zero ttl", SessionConfig{Secret: secret}, BillingConfig{}, "TTL"},
		{"stripe missing key", SessionConfig{Secret: secret, TTL: time.Hour}, BillingConfig{Provider: "stripe"}, "secret key"},
		{"stripe missing urls", SessionConfig{Secret: secret, TTL: time.Hour}, BillingConfig{
			Provider: "stripe",
			Stripe:   StripeConfig{SecretKey: "sk", WebhookSecret: "wh"},
		}, "successURL"},
		{"unknown provider", SessionConfig{Secret: secret, TTL: time.Hour}, BillingConfig{Provider: "paypal"}, "invalid provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Session: tt.session, Billing: tt.billing}
			err := cfg.ValidateServer()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
