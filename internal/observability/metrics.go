package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Business events counted by RecordBusinessEvent
const (
	EventResumeAnalyzed  = "resume_analyzed"
	EventResumeRewritten = "resume_rewritten"
	EventPlanUpgraded    = "plan_upgraded"
	EventPaymentSettled  = "payment_settled"
	EventFileExtracted   = "file_extracted"
)

// TokenUsage is the token accounting reported by a model call
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Metrics holds the custom instruments
type Metrics struct {
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	business map[string]metric.Int64Counter

	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	RateLimitHits metric.Int64Counter
}

func newMetrics(meter metric.Meter, prefix string) (*Metrics, error) {
	name := func(s string) string { return prefix + "_" + s }
	m := &Metrics{business: make(map[string]metric.Int64Counter)}

	var err error
	if m.AIProcessingTime, err = meter.Float64Histogram(name("ai_processing_duration_seconds"),
		metric.WithDescription("Time spent processing AI requests"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}
	if m.AIRequestCount, err = meter.Int64Counter(name("ai_requests_total"),
		metric.WithDescription("Total number of AI requests")); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}
	if m.AIErrorCount, err = meter.Int64Counter(name("ai_errors_total"),
		metric.WithDescription("Total number of AI request errors")); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram(name("ai_token_usage"),
		metric.WithDescription("Token usage for AI requests by token type"), metric.WithUnit("tokens")); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	events := map[string]string{
		EventResumeAnalyzed:  "Total number of resume health checks",
		EventResumeRewritten: "Total number of full resume rewrites",
		EventPlanUpgraded:    "Total number of plan upgrades",
		EventPaymentSettled:  "Total number of settled payments",
		EventFileExtracted:   "Total number of uploaded files converted to text",
	}
	for event, desc := range events {
		c, err := meter.Int64Counter(name(event+"_total"), metric.WithDescription(desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", event, err)
		}
		m.business[event] = c
	}

	if m.CertReloadCount, err = meter.Int64Counter(name("cert_reloads_total"),
		metric.WithDescription("Total number of certificate reloads")); err != nil {
		return nil, fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}
	if m.CertExpiryTime, err = meter.Float64Gauge(name("cert_expiry_seconds"),
		metric.WithDescription("Seconds until certificate expiry"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry time metric: %w", err)
	}
	if m.RateLimitHits, err = meter.Int64Counter(name("rate_limit_hits_total"),
		metric.WithDescription("Total number of rate limited requests")); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}
	return m, nil
}

// TrackAIOperation runs fn inside an "ai.<operation>" span and records
// duration, request, error and token metrics as configured.
func (m *Manager) TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) (*TokenUsage, error)) error {
	if m == nil || m.metrics == nil || !m.cfg.CustomMetrics.AIOperations.Enabled {
		_, err := fn(ctx)
		return err
	}

	ctx, span := m.Tracer("resumegenius.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	usage, err := fn(ctx)
	duration := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	opt := metric.WithAttributes(attrs...)

	if m.cfg.CustomMetrics.AIOperations.TrackDuration {
		m.metrics.AIProcessingTime.Record(ctx, duration, opt)
	}
	m.metrics.AIRequestCount.Add(ctx, 1, opt)
	if err != nil {
		m.metrics.AIErrorCount.Add(ctx, 1, opt)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	m.recordTokens(ctx, span, operation, usage)

	span.SetAttributes(attrs...)
	return err
}

func (m *Manager) recordTokens(ctx context.Context, span oteltrace.Span, operation string, usage *TokenUsage) {
	if usage == nil {
		return
	}
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
	if !m.cfg.CustomMetrics.AIOperations.TrackTokenUsage {
		return
	}
	for _, tt := range []struct {
		kind  string
		value int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		m.metrics.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.kind),
		))
	}
}

// RecordBusinessEvent increments the counter for one of the Event constants
func (m *Manager) RecordBusinessEvent(ctx context.Context, event string, success bool, attrs ...attribute.KeyValue) {
	if m == nil || m.metrics == nil || !m.cfg.CustomMetrics.BusinessMetrics.Enabled {
		return
	}
	counter, ok := m.metrics.business[event]
	if !ok {
		return
	}
	all := append([]attribute.KeyValue{attribute.Bool("success", success)}, attrs...)
	counter.Add(ctx, 1, metric.WithAttributes(all...))
}

// RecordRateLimitHit counts a rejected request
func (m *Manager) RecordRateLimitHit(ctx context.Context, scope string) {
	if !m.trackInfra() || !m.cfg.CustomMetrics.Infrastructure.TrackRateLimits {
		return
	}
	m.metrics.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

// RecordCertReload counts a certificate reload attempt
func (m *Manager) RecordCertReload(ctx context.Context, success bool) {
	if !m.trackInfra() {
		return
	}
	m.metrics.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordCertExpiry sets the seconds-until-expiry gauge
func (m *Manager) RecordCertExpiry(ctx context.Context, notAfter time.Time) {
	if !m.trackInfra() || !m.cfg.CustomMetrics.Infrastructure.TrackCertExpiry {
		return
	}
	m.metrics.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
}

func (m *Manager) trackInfra() bool {
	return m != nil && m.metrics != nil && m.cfg.CustomMetrics.Infrastructure.Enabled
}
