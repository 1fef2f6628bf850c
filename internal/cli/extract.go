package cli

import (
	"fmt"

	"resumegenius/internal/common"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [resume-file]",
	Short: "Print the text extracted from a resume file",
	Long: `Extract plain text from a .txt, .pdf or .docx resume, exactly as the
web app does for uploads. No AI call is made.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var extractOutput string

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output file path (default: stdout)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	fp := common.NewFileProcessor(cfg.Extract.MaxFileSize, logger)
	if err := fp.ValidateOutputFile(extractOutput); err != nil {
		return err
	}
	text, err := fp.ExtractFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	if extractOutput == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	if err := fp.WriteFile(extractOutput, text+"\n"); err != nil {
		return err
	}
	logger.Info("Extracted text written", "file", extractOutput, "chars", len([]rune(text)))
	return nil
}
