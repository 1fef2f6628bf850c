package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resumegenius/internal/config"
	"resumegenius/internal/errors"
	"resumegenius/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

const defaultModelCheckTimeout = 10 * time.Second

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	client            *genai.Client
	config            *config.OperationAIConfig
	operation         string
	breaker           *Breaker[*genai.GenerateContentResponse]
	modelBreaker      *Breaker[*genai.Model]
	modelCheckTimeout time.Duration
	logger            *errors.Logger
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a provider bound to one operation's configuration
func NewGeminiProvider(cfg *config.OperationAIConfig, operation string, logger *errors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:            client,
		config:            cfg,
		operation:         operation,
		breaker:           NewBreaker[*genai.GenerateContentResponse](breakerName("generate", operation), cfg.CircuitBreaker, logger),
		modelBreaker:      newModelBreaker[*genai.Model](breakerName("model", operation), cfg.CircuitBreaker, logger),
		modelCheckTimeout: defaultModelCheckTimeout,
		logger:            logger,
	}, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"operation", g.operation,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", info.DisplayName,
		"version", info.Version)
	return info
}

// executeAIOperation runs one generation call under tracing and the breaker
// and decodes the JSON answer into Out. resultAttributes, when set, adds
// attributes derived from the decoded answer to the operation span.
func executeAIOperation[Out any](
	ctx context.Context,
	g *GeminiProvider,
	operationName string,
	systemPrompt string,
	userPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	resultAttributes func(Out) []attribute.KeyValue,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	ctx, span := otel.Tracer("resumegenius.ai.gemini").Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
	)
	if g.config.Temperature != nil {
		span.SetAttributes(attribute.Float64("ai.temperature", float64(*g.config.Temperature)))
	}
	span.SetAttributes(spanAttributes...)

	if g.config.UseSystemPrompts != nil && *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	if g.config.Timeout != nil && *g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *g.config.Timeout)
		defer cancel()
	}

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		appErr := classifyError(err, operationName)
		g.logger.LogError(appErr, "AI operation failed", "operation", operationName)
		return output, nil, appErr
	}

	if err := decodeResponse(result.Text(), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, errors.NewAIError(errors.ErrCodeAIResponseParseFailed,
			"Failed to parse AI response for "+operationName, err)
	}

	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	if resultAttributes != nil {
		span.SetAttributes(resultAttributes(output)...)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return output, usage, nil
}

func decodeResponse(text string, out any) error {
	if text == "" {
		return fmt.Errorf("empty response")
	}
	return json.Unmarshal([]byte(text), out)
}

// AnalyzeResume implements AIProvider
func (g *GeminiProvider) AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.AnalysisResult, *TokenUsage, error) {
	system, user := analyzePrompts(g.config, input.ResumeText)

	output, usage, err := executeAIOperation[types.AnalysisResult](ctx, g, "analyze_resume",
		system, user, generationConfig(analysisSchema(), g.config), analysisAttributes,
		attribute.Int("input.resume_length", len(input.ResumeText)))
	if err != nil {
		return types.AnalysisResult{}, nil, err
	}
	return output, usage, nil
}

func analysisAttributes(a types.AnalysisResult) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("analysis.overall_score", int(a.OverallScore)),
		attribute.Int("analysis.sections", len(a.Sections)),
	}
}

// RewriteResume implements AIProvider
func (g *GeminiProvider) RewriteResume(ctx context.Context, input types.RewriteResumeInput) (types.RewriteResult, *TokenUsage, error) {
	system, user := rewritePrompts(g.config, input.ResumeText)

	output, usage, err := executeAIOperation[types.RewriteResult](ctx, g, "rewrite_resume",
		system, user, generationConfig(rewriteSchema(g.config.SchemaVersion), g.config), nil,
		attribute.Int("input.resume_length", len(input.ResumeText)),
		attribute.String("rewrite.schema", g.config.SchemaVersion))
	if err != nil {
		return types.RewriteResult{}, nil, err
	}
	return output, usage, nil
}

// Stats returns breaker statistics for both generation and model lookups
func (g *GeminiProvider) Stats() map[string]any {
	return map[string]any{
		"ai_operations":    g.breaker.Stats(),
		"model_operations": g.modelBreaker.Stats(),
		"overall_healthy":  g.breaker.Healthy() && g.modelBreaker.Healthy(),
	}
}

// Close implements AIProvider; the genai client holds no resources in
// single-shot use.
func (g *GeminiProvider) Close() error {
	return nil
}

func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	u := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(u.PromptTokenCount),
		OutputTokens: int64(u.CandidatesTokenCount),
		TotalTokens:  int64(u.TotalTokenCount),
	}
}
