package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks fills values the environment provides outside the prefix
func (c *Config) applyFallbacks() {
	if c.AI.APIKey == "" {
		for _, env := range []string{"GEMINI_API_KEY", "API_KEY"} {
			if v := os.Getenv(env); v != "" {
				c.AI.APIKey = v
				break
			}
		}
	}

	if len(c.Server.APIKeys) == 0 {
		if raw := os.Getenv(EnvPrefix + "_SERVER_APIKEYS"); raw != "" {
			c.Server.APIKeys = splitList(raw)
		}
	}

	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = serviceInstanceID(c.Observability.ServiceName)
	}
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

func serviceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return serviceName + "-1"
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// logConfigurationSources logs where configuration came from. Secrets are masked.
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")
	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		EnvPrefix + "_AI_APIKEY",
		EnvPrefix + "_AI_MODEL",
		EnvPrefix + "_SERVER_PORT",
		EnvPrefix + "_SERVER_HOST",
		EnvPrefix + "_APP_LOGLEVEL",
		EnvPrefix + "_STORAGE_BACKEND",
		EnvPrefix + "_SESSION_SECRET",
		EnvPrefix + "_BILLING_PROVIDER",
		EnvPrefix + "_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"API_KEY",
	}
	log.Println("[CONFIG] Environment variables:")
	found := false
	for _, name := range envVars {
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		found = true
		if isSensitive(name) {
			log.Printf("[CONFIG]   %s=***MASKED***", name)
		} else {
			log.Printf("[CONFIG]   %s=%s", name, value)
		}
	}
	if !found {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	log.Printf("[CONFIG] AI API Key: %s", configured(c.AI.APIKey))
	log.Printf("[CONFIG] Rewrite schema: %s", c.AI.Rewrite.SchemaVersion)
	log.Printf("[CONFIG] Server: %s:%s (static %s)", c.Server.Host, c.Server.Port, c.Server.StaticDir)
	log.Printf("[CONFIG] Storage backend: %s", c.Storage.Backend)
	log.Printf("[CONFIG] Session secret: %s", configured(c.Session.Secret))
	log.Printf("[CONFIG] Billing provider: %s", c.Billing.Provider)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") || strings.Contains(lower, "secret")
}

func configured(v string) string {
	if v == "" {
		return "***NOT SET***"
	}
	return "***CONFIGURED***"
}
