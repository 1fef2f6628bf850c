package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultModel is the Gemini model used when none is configured
const DefaultModel = "gemini-3-pro-preview"

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", DefaultModel)
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.useSystemPrompts", true)

	// analysis scores should be stable between runs
	v.SetDefault("ai.analyze.timeout", 75*time.Second)
	v.SetDefault("ai.analyze.temperature", 0.2)
	v.SetDefault("ai.rewrite.timeout", 120*time.Second)
	v.SetDefault("ai.rewrite.temperature", 0.4)
	v.SetDefault("ai.rewrite.schemaVersion", SchemaStructured)

	for _, op := range []string{OperationAnalyze, OperationRewrite} {
		prefix := "ai." + op + ".circuitBreaker."
		v.SetDefault(prefix+"enabled", true)
		v.SetDefault(prefix+"maxRequests", 3)
		v.SetDefault(prefix+"interval", 60*time.Second)
		v.SetDefault(prefix+"timeout", 60*time.Second)
		v.SetDefault(prefix+"minRequests", 3)
		v.SetDefault(prefix+"failureThreshold", 0.6)
	}

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 180*time.Second) // rewrites are slow
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.staticDir", "dist")
	v.SetDefault("server.maxRequestSize", 12*1024*1024)
	v.SetDefault("server.apiKeys", []string{})

	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.cipherSuites", []string{})
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.autoReload.enabled", true)
	v.SetDefault("server.tls.autoReload.fileWatcher.enabled", true)
	v.SetDefault("server.tls.autoReload.fileWatcher.debounceDelay", time.Second)

	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.distributed", true)
	v.SetDefault("server.rateLimit.failOpen", true)

	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})

	v.SetDefault("extract.maxFileSize", 10*1024*1024)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.ttl", 0)
	v.SetDefault("storage.redis.url", "")
	v.SetDefault("storage.redis.poolSize", 10)
	v.SetDefault("storage.redis.minIdleConns", 2)

	v.SetDefault("session.secret", "")
	v.SetDefault("session.issuer", "resumegenius")
	v.SetDefault("session.audience", "resumegenius-web")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.idleTimeout", 2*time.Hour)

	v.SetDefault("billing.provider", "none")
	v.SetDefault("billing.successURL", "")
	v.SetDefault("billing.cancelURL", "")
	v.SetDefault("billing.stripe.secretKey", "")
	v.SetDefault("billing.stripe.webhookSecret", "")
	v.SetDefault("billing.stripe.priceIDs", map[string]string{})

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.tlsCerts", "")
	v.SetDefault("vault.secrets.session", "")
	v.SetDefault("vault.secrets.stripe", "")

	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumegenius")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackCertExpiry", true)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
}
