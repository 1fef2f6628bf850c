package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "RESUMEGENIUS"

// Config holds all application configuration
// Secret precedence, highest first:
// 1. Vault (if configured)
// 2. Config file values
// 3. Environment variables (RESUMEGENIUS_AI_APIKEY, RESUMEGENIUS_SESSION_SECRET, ...)
// 4. Default values
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Extract       ExtractConfig       `mapstructure:"extract"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Session       SessionConfig       `mapstructure:"session"`
	Billing       BillingConfig       `mapstructure:"billing"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds AI service configuration. The top-level fields are
// fallbacks for the per-operation blocks.
type AIConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig  `mapstructure:"customPrompts"`

	Analyze OperationAIConfig `mapstructure:"analyze"`
	Rewrite OperationAIConfig `mapstructure:"rewrite"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // allowed while half-open
	Interval         time.Duration `mapstructure:"interval"`         // count reset period while closed
	Timeout          time.Duration `mapstructure:"timeout"`          // open to half-open
	MinRequests      uint32        `mapstructure:"minRequests"`      // before the ratio is considered
	FailureThreshold float64       `mapstructure:"failureThreshold"` // 0.0-1.0
}

// OperationAIConfig holds AI configuration for one operation. Pointer
// fields distinguish "unset" from zero so the global value can apply.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	SchemaVersion    string               `mapstructure:"schemaVersion"` // rewrite only: structured or flat
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds configuration for customizable prompts
type PromptConfig struct {
	SystemPrompts PromptSet `mapstructure:"systemPrompts"`
	UserPrompts   PromptSet `mapstructure:"userPrompts"`
}

// PromptSet carries inline prompts and prompt file paths per operation
type PromptSet struct {
	AnalyzeResume     string `mapstructure:"analyzeResume"`
	AnalyzeResumeFile string `mapstructure:"analyzeResumeFile"`
	RewriteResume     string `mapstructure:"rewriteResume"`
	RewriteResumeFile string `mapstructure:"rewriteResumeFile"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	StaticDir      string        `mapstructure:"staticDir"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`

	TLS TLSConfig `mapstructure:"tls"`

	// Keys accepted for the operator endpoints (/stats)
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // disabled, server, mutual
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`

	// PEM content, set when certificates come from Vault
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string   `mapstructure:"minVersion"` // 1.2 or 1.3
	CipherSuites     []string `mapstructure:"cipherSuites"`
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // require, request, verify

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls hot reload of certificates and prompt files
type AutoReloadConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	FileWatcher FileWatcherConfig `mapstructure:"fileWatcher"`
}

// FileWatcherConfig holds configuration for file-based watching
type FileWatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
	// Distributed shares counters through the storage Redis when available
	Distributed bool `mapstructure:"distributed"`
	FailOpen    bool `mapstructure:"failOpen"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
}

// ExtractConfig bounds file uploads
type ExtractConfig struct {
	MaxFileSize int64 `mapstructure:"maxFileSize"`
}

// StorageConfig selects where rewrites are persisted
type StorageConfig struct {
	Backend string        `mapstructure:"backend"` // memory or redis
	TTL     time.Duration `mapstructure:"ttl"`     // zero keeps entries forever
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PoolSize     int    `mapstructure:"poolSize"`
	MinIdleConns int    `mapstructure:"minIdleConns"`
}

// SessionConfig holds session token settings
type SessionConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"ttl"`
	// IdleTimeout evicts controllers that saw no requests for this long
	IdleTimeout time.Duration `mapstructure:"idleTimeout"`
}

// BillingConfig selects the payment provider
type BillingConfig struct {
	Provider   string       `mapstructure:"provider"` // none or stripe
	SuccessURL string       `mapstructure:"successURL"`
	CancelURL  string       `mapstructure:"cancelURL"`
	Stripe     StripeConfig `mapstructure:"stripe"`
}

// StripeConfig holds Stripe credentials and price mapping
type StripeConfig struct {
	SecretKey     string `mapstructure:"secretKey"`
	WebhookSecret string `mapstructure:"webhookSecret"`
	// PriceIDs maps plan names (BASIC, UNLIMITED, SUPER_PREMIUM) to Stripe price IDs
	PriceIDs map[string]string `mapstructure:"priceIDs"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AIOperationsMetricsConfig holds AI operation metrics configuration
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

// BusinessMetricsConfig holds business metrics configuration
type BusinessMetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackCertExpiry bool `mapstructure:"trackCertExpiry"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from defaults, the config file and the
// environment, in that order of increasing precedence.
func LoadConfig() (*Config, error) {
	return load("")
}

// LoadConfigFile loads configuration from an explicit file path
func LoadConfigFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Printf("[CONFIG] Configured environment variable handling with prefix '%s'", EnvPrefix)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/resumegenius/")
		v.AddConfigPath("$HOME/.resumegenius")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", configFileUsed)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyFallbacks()
	cfg.logConfigurationSources(configFileUsed)

	if err := cfg.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}
	if err := cfg.LoadPromptFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required (set %s_AI_APIKEY or GEMINI_API_KEY)", EnvPrefix)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Extract.MaxFileSize <= 0 {
		return fmt.Errorf("extract.maxFileSize must be positive")
	}

	if !contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	switch c.AI.Rewrite.SchemaVersion {
	case "", SchemaStructured, SchemaFlat:
	default:
		return fmt.Errorf("invalid ai.rewrite.schemaVersion: %s (must be '%s' or '%s')",
			c.AI.Rewrite.SchemaVersion, SchemaStructured, SchemaFlat)
	}

	switch c.Storage.Backend {
	case "", "memory":
	case "redis":
		if c.Storage.Redis.URL == "" {
			return fmt.Errorf("storage.redis.url is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be 'memory' or 'redis')", c.Storage.Backend)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// ValidateServer checks the settings only the HTTP server needs
func (c *Config) ValidateServer() error {
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes (set %s_SESSION_SECRET)", EnvPrefix)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if err := c.validateBilling(); err != nil {
		return fmt.Errorf("billing configuration error: %w", err)
	}
	return nil
}

func (c *Config) validateBilling() error {
	switch c.Billing.Provider {
	case "", "none":
		return nil
	case "stripe":
	default:
		return fmt.Errorf("invalid provider: %s (must be 'none' or 'stripe')", c.Billing.Provider)
	}

	s := c.Billing.Stripe
	if s.SecretKey == "" {
		return fmt.Errorf("stripe secret key is required")
	}
	if s.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required")
	}
	if c.Billing.SuccessURL == "" || c.Billing.CancelURL == "" {
		return fmt.Errorf("successURL and cancelURL are required for stripe")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
