package ai

import (
	"context"

	"resumegenius/internal/observability"
	"resumegenius/internal/types"
)

// AIProvider is implemented by each model backend. Token usage may be nil.
type AIProvider interface {
	AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.AnalysisResult, *TokenUsage, error)
	RewriteResume(ctx context.Context, input types.RewriteResumeInput) (types.RewriteResult, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage reported by the model
type TokenUsage = observability.TokenUsage

// ModelInfo describes model availability for health checks
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
