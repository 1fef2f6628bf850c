package ai

import (
	"context"
	"fmt"
	"strings"

	"resumegenius/internal/config"
	"resumegenius/internal/errors"
	"resumegenius/internal/observability"
	"resumegenius/internal/plan"
	"resumegenius/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// Service runs one AI operation against a provider and records metrics
type Service struct {
	Provider  AIProvider
	config    *config.OperationAIConfig
	operation string
	logger    *errors.Logger
	om        *observability.Manager
}

// NewService creates a service for operation ("analyze" or "rewrite").
// om may be nil.
func NewService(cfg *config.OperationAIConfig, operation string, logger *errors.Logger, om *observability.Manager) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation", operation,
		"model", cfg.Model,
		"schema", cfg.SchemaVersion)

	var (
		provider AIProvider
		err      error
	)
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operation, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}
	return NewServiceWithProvider(provider, cfg, operation, logger, om), nil
}

// NewServiceWithProvider wraps an existing provider
func NewServiceWithProvider(p AIProvider, cfg *config.OperationAIConfig, operation string, logger *errors.Logger, om *observability.Manager) *Service {
	return &Service{
		Provider:  p,
		config:    cfg,
		operation: operation,
		logger:    logger.With("operation", operation),
		om:        om,
	}
}

// Analyze produces a health check. Only the first section is marked free.
func (s *Service) Analyze(ctx context.Context, text string) (*types.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeEmptyInput, "Resume text is empty", nil)
	}

	var result types.AnalysisResult
	err := s.om.TrackAIOperation(ctx, "analyze_resume", func(ctx context.Context) (*TokenUsage, error) {
		out, usage, err := s.Provider.AnalyzeResume(ctx, types.AnalyzeResumeInput{ResumeText: text})
		result = out
		return usage, err
	})
	s.om.RecordBusinessEvent(ctx, observability.EventResumeAnalyzed, err == nil)
	if err != nil {
		return nil, err
	}

	out := result.Clone()
	plan.MarkFreeSections(out.Sections)
	s.logger.Debug("Resume analyzed",
		"overall_score", out.OverallScore,
		"sections", len(out.Sections))
	return out, nil
}

// Rewrite produces a full rewrite
func (s *Service) Rewrite(ctx context.Context, text string) (*types.RewriteResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeEmptyInput, "Resume text is empty", nil)
	}

	var result types.RewriteResult
	err := s.om.TrackAIOperation(ctx, "rewrite_resume", func(ctx context.Context) (*TokenUsage, error) {
		out, usage, err := s.Provider.RewriteResume(ctx, types.RewriteResumeInput{ResumeText: text})
		result = out
		return usage, err
	})
	s.om.RecordBusinessEvent(ctx, observability.EventResumeRewritten, err == nil,
		attribute.Bool("structured", result.IsStructured()))
	if err != nil {
		return nil, err
	}
	if !result.IsStructured() && strings.TrimSpace(result.Text) == "" {
		return nil, errors.NewAIError(errors.ErrCodeAIResponseParseFailed, "AI returned an empty rewrite", nil)
	}
	return &result, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Stats returns provider statistics when the provider exposes them
func (s *Service) Stats() map[string]any {
	if sp, ok := s.Provider.(interface{ Stats() map[string]any }); ok {
		return sp.Stats()
	}
	return map[string]any{}
}

// Operation returns the operation this service was built for
func (s *Service) Operation() string {
	return s.operation
}

// Close releases the provider
func (s *Service) Close() error {
	return s.Provider.Close()
}
