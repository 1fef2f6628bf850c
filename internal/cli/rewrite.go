package cli

import (
	"context"
	"fmt"

	"resumegenius/internal/ai"
	"resumegenius/internal/common"
	"resumegenius/internal/types"

	"github.com/spf13/cobra"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [resume-file]",
	Short: "Rewrite a resume in full",
	Long: `Produce a fully rewritten, ATS-friendly resume. The full rewrite is part
of the UNLIMITED and SUPER_PREMIUM plans; select one with --plan.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := preRunOutput(&rewriteConfig)(cmd, args); err != nil {
			return err
		}
		p, _ := common.ResolvePlan(rewriteConfig.Plan)
		return common.RequireFullRewrite(p)
	},
	RunE: runRewrite,
}

var rewriteConfig common.CommandConfig

func init() {
	addOutputFlags(rewriteCmd, &rewriteConfig)
	rewriteCmd.Flags().StringVar(&rewriteConfig.Plan, "plan", "", "Plan to run under: UNLIMITED or SUPER_PREMIUM")
}

func runRewrite(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	rewriteAIConfig := cfg.GetRewriteConfig()
	aiService, err := ai.NewService(&rewriteAIConfig, "rewrite", logger, nil)
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
		logger.Info("Starting full resume rewrite",
			"resume_chars", len(text),
			"schema", rewriteAIConfig.SchemaVersion,
			"output_format", cc.OutputFormat)
	}

	rewriteOperation := func(ctx context.Context, text string) (*types.RewriteResult, error) {
		return aiService.Rewrite(ctx, text)
	}

	err = common.RunAICommand(
		cmd.Context(),
		logger,
		rewriteConfig,
		args,
		createInput,
		rewriteOperation,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to rewrite resume: %w", err)
	}
	logger.Info("Resume rewrite completed successfully")
	return nil
}
