package cli

import (
	"context"
	"fmt"

	"resumegenius/internal/ai"
	"resumegenius/internal/common"
	"resumegenius/internal/formatters"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Run a resume health check",
	Long: `Analyze a resume and print a health check report: an overall score,
an impact metrics score, missing keywords and per-section feedback.

Sections beyond the first are locked on the FREE plan; pass --plan to
see what a paid plan unlocks.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: preRunOutput(&analyzeConfig),
	RunE:    runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
	analyzeCmd.Flags().StringVar(&analyzeConfig.Plan, "plan", "", "Plan to render the report for: FREE, BASIC, UNLIMITED, SUPER_PREMIUM")
}

// preRunOutput applies the default format and validates format and plan
func preRunOutput(cc *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		cc.MaxFileSize = cfg.Extract.MaxFileSize
		if cc.OutputFormat == "" {
			cc.OutputFormat = cfg.App.DefaultFormat
		}
		if _, err := common.ResolvePlan(cc.Plan); err != nil {
			return err
		}
		return common.ValidateOutputFormat(cc.OutputFormat, cfg.App.SupportedFormats)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	p, _ := common.ResolvePlan(analyzeConfig.Plan)

	analyzeAIConfig := cfg.GetAnalyzeConfig()
	aiService, err := ai.NewService(&analyzeAIConfig, "analyze", logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer aiService.Close()

	createInput := func(contents []string) (string, error) {
		if len(contents) != 1 {
			return "", fmt.Errorf("expected 1 file path, got %d", len(contents))
		}
		return contents[0], nil
	}

	logDetails := func(text string, cc common.CommandConfig) {
		logger.Info("Starting resume analysis",
			"resume_chars", len(text),
			"plan", p.String(),
			"output_format", cc.OutputFormat)
	}

	analyzeOperation := func(ctx context.Context, text string) (formatters.Report, error) {
		analysis, err := aiService.Analyze(ctx, text)
		if err != nil {
			return formatters.Report{}, err
		}
		return formatters.Report{Analysis: analysis, Plan: p}, nil
	}

	err = common.RunAICommand(
		cmd.Context(),
		logger,
		analyzeConfig,
		args,
		createInput,
		analyzeOperation,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed successfully")
	return nil
}
