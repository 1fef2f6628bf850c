package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"resumegenius/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// Secret paths
	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KVv2 paths. Each secret uses fixed field names:
//
//	apiKeys:   keys (comma-separated)
//	geminiKey: api_key
//	tlsCerts:  cert, key, ca (PEM content)
//	session:   secret
//	stripe:    secret_key, webhook_secret
type VaultSecrets struct {
	APIKeys   string `mapstructure:"apiKeys"`
	GeminiKey string `mapstructure:"geminiKey"`
	TLSCerts  string `mapstructure:"tlsCerts"`
	Session   string `mapstructure:"session"`
	Stripe    string `mapstructure:"stripe"`
}

// VaultClient reads KVv2 secrets with a verified token
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks its health. It returns nil
// when the integration is disabled.
func NewVaultClient(ctx context.Context, cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	token, err := vaultToken(cfg)
	if err != nil {
		return nil, err
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Failed to create Vault client", err)
	}
	client.SetToken(token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	health, err := client.Sys().HealthWithContext(ctx)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkUnavailable,
			fmt.Sprintf("Vault at %s is unreachable", apiCfg.Address), err)
	}
	if health.Sealed {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Vault at %s is sealed", apiCfg.Address), nil)
	}

	logger.Info("Connected to Vault",
		"address", apiCfg.Address,
		"namespace", cfg.Namespace,
		"version", health.Version)
	return &VaultClient{client: client, logger: logger}, nil
}

// vaultToken prefers the inline token over the token file
func vaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		b, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("Failed to read vault token file %s", cfg.TokenFile), err)
		}
		token = strings.TrimSpace(string(b))
	}
	if token == "" {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"vault token is required when vault is enabled", nil)
	}
	return token, nil
}

// ReadKV returns the data map of the KVv2 secret at path, e.g.
// "secret/data/resumegenius/stripe".
func (vc *VaultClient) ReadKV(ctx context.Context, path string) (map[string]any, error) {
	secret, err := vc.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no secret at %s", path)
	}
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not a KVv2 entry", path)
	}
	vc.logger.Debug("Read secret from Vault", "path", path, "fields", len(data))
	return data, nil
}

// secretString returns a non-empty string field of a secret
func secretString(data map[string]any, field string) (string, error) {
	v, ok := data[field]
	if !ok {
		return "", fmt.Errorf("secret is missing %q", field)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("secret field %q must be a non-empty string", field)
	}
	return s, nil
}

// secretApplier copies the fields of one secret into the config
type secretApplier func(cfg *Config, data map[string]any) error

// ApplyVaultSecrets reads each configured secret path and overlays it on
// cfg. Any failure aborts startup.
func ApplyVaultSecrets(ctx context.Context, cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(ctx, cfg.Vault, logger)
	if err != nil {
		return err
	}

	secrets := cfg.Vault.Secrets
	appliers := []struct {
		name  string
		path  string
		apply secretApplier
	}{
		{"API keys", secrets.APIKeys, applyAPIKeys},
		{"Gemini API key", secrets.GeminiKey, applyGeminiKey},
		{"TLS certificates", secrets.TLSCerts, applyTLSSecret},
		{"session secret", secrets.Session, applySessionSecret},
		{"Stripe credentials", secrets.Stripe, applyStripeSecret},
	}
	for _, a := range appliers {
		if a.path == "" {
			continue
		}
		data, err := client.ReadKV(ctx, a.path)
		if err == nil {
			err = a.apply(cfg, data)
		}
		if err != nil {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("Failed to load %s from Vault", a.name), err).
				WithContext("path", a.path)
		}
		logger.Info("Secret loaded from Vault", "secret", a.name, "path", a.path)
	}
	return nil
}

// applyAPIKeys reads a comma-separated "keys" field
func applyAPIKeys(cfg *Config, data map[string]any) error {
	raw, err := secretString(data, "keys")
	if err != nil {
		return err
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("secret field \"keys\" holds no keys")
	}
	cfg.Server.APIKeys = keys
	return nil
}

// applyGeminiKey sets the global key and fills operations that have none
func applyGeminiKey(cfg *Config, data map[string]any) error {
	key, err := secretString(data, "api_key")
	if err != nil {
		return err
	}
	cfg.AI.APIKey = key
	for _, op := range []*OperationAIConfig{&cfg.AI.Analyze, &cfg.AI.Rewrite} {
		if op.APIKey == "" {
			op.APIKey = key
		}
	}
	return nil
}

// applyTLSSecret copies PEM content. Vault holds certificate content, so
// file-path fields are rejected.
func applyTLSSecret(cfg *Config, data map[string]any) error {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, ok := data[field]; ok {
			return fmt.Errorf("%q is not supported in Vault, store the PEM content in %q",
				field, strings.TrimSuffix(field, "_file"))
		}
	}

	targets := map[string]*string{
		"cert": &cfg.Server.TLS.CertContent,
		"key":  &cfg.Server.TLS.KeyContent,
		"ca":   &cfg.Server.TLS.CAContent,
	}
	loaded := 0
	for field, target := range targets {
		if pem, ok := data[field].(string); ok && pem != "" {
			*target = pem
			loaded++
		}
	}
	if loaded == 0 {
		return fmt.Errorf("secret holds none of cert, key or ca")
	}
	return nil
}

func applySessionSecret(cfg *Config, data map[string]any) error {
	secret, err := secretString(data, "secret")
	if err != nil {
		return err
	}
	cfg.Session.Secret = secret
	return nil
}

func applyStripeSecret(cfg *Config, data map[string]any) error {
	key, err := secretString(data, "secret_key")
	if err != nil {
		return err
	}
	cfg.Billing.Stripe.SecretKey = key
	if hook, ok := data["webhook_secret"].(string); ok && hook != "" {
		cfg.Billing.Stripe.WebhookSecret = hook
	}
	return nil
}
