package cli

import (
	"context"
	"fmt"
	"time"

	"resumegenius/internal/ai"
	"resumegenius/internal/billing"
	"resumegenius/internal/config"
	"resumegenius/internal/observability"
	"resumegenius/internal/server"
	"resumegenius/internal/session"
	"resumegenius/internal/store"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Resume Genius web server",
	Long: `Start the HTTP server that hosts the web app and its JSON API.

Each browser session gets its own state machine, addressed by a signed
session token. Analyses and rewrites call the configured AI model; plan
upgrades go through the billing provider (none or stripe).

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("static-dir", "", "Directory with the built web app (overrides config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded config
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag   string
		target *string
	}{
		{"port", &cfg.Server.Port},
		{"host", &cfg.Server.Host},
		{"static-dir", &cfg.Server.StaticDir},
		{"tls-mode", &cfg.Server.TLS.Mode},
		{"cert-file", &cfg.Server.TLS.CertFile},
		{"key-file", &cfg.Server.TLS.KeyFile},
		{"ca-file", &cfg.Server.TLS.CAFile},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target, _ = cmd.Flags().GetString(o.flag)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	applyServeFlags(cmd, cfg)

	if err := config.ApplyVaultSecrets(ctx, cfg, logger); err != nil {
		return fmt.Errorf("failed to apply vault secrets: %w", err)
	}
	// Validate TLS configuration after applying overrides and vault content
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	om, err := observability.New(cfg.Observability, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()

	st, err := store.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.LogError(err, "Failed to close storage")
		}
	}()

	analyzeAIConfig := cfg.GetAnalyzeConfig()
	analyzer, err := ai.NewService(&analyzeAIConfig, "analyze", logger, om)
	if err != nil {
		return fmt.Errorf("failed to create analyze AI service: %w", err)
	}
	defer analyzer.Close()

	rewriteAIConfig := cfg.GetRewriteConfig()
	rewriter, err := ai.NewService(&rewriteAIConfig, "rewrite", logger, om)
	if err != nil {
		return fmt.Errorf("failed to create rewrite AI service: %w", err)
	}
	defer rewriter.Close()

	sessions, err := session.NewManager(cfg.Session)
	if err != nil {
		return err
	}
	provider, err := billing.New(cfg.Billing, logger)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, Version, server.Deps{
		Analyzer:      analyzer,
		Rewriter:      rewriter,
		Store:         st,
		Sessions:      sessions,
		Billing:       provider,
		Observability: om,
	}, logger)
	if err != nil {
		return err
	}
	return srv.Start()
}
