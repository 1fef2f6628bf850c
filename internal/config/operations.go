package config

// Operation names as used in config keys and metrics
const (
	OperationAnalyze = "analyze"
	OperationRewrite = "rewrite"
)

// Rewrite response schemas
const (
	SchemaStructured = "structured"
	SchemaFlat       = "flat"
)

// applyOperationDefaults fills unset operation fields from the global AI block
func (c *Config) applyOperationDefaults(op *OperationAIConfig) {
	if op.Provider == "" {
		op.Provider = c.AI.Provider
	}
	if op.Model == "" {
		op.Model = c.AI.Model
	}
	if op.Timeout == nil {
		t := c.AI.Timeout
		op.Timeout = &t
	}
	if op.APIKey == "" {
		op.APIKey = c.AI.APIKey
	}
	if op.Temperature == nil {
		t := c.AI.Temperature
		op.Temperature = &t
	}
	if op.UseSystemPrompts == nil {
		u := c.AI.UseSystemPrompts
		op.UseSystemPrompts = &u
	}
}

// GetAnalyzeConfig returns the analyze configuration with global fallbacks applied
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	op := c.AI.Analyze
	c.applyOperationDefaults(&op)

	sys, usr := &op.CustomPrompts.SystemPrompts, &op.CustomPrompts.UserPrompts
	global := c.AI.CustomPrompts
	fallback(&sys.AnalyzeResume, global.SystemPrompts.AnalyzeResume)
	fallback(&sys.AnalyzeResumeFile, global.SystemPrompts.AnalyzeResumeFile)
	fallback(&usr.AnalyzeResume, global.UserPrompts.AnalyzeResume)
	fallback(&usr.AnalyzeResumeFile, global.UserPrompts.AnalyzeResumeFile)
	return op
}

// GetRewriteConfig returns the rewrite configuration with global fallbacks applied
func (c *Config) GetRewriteConfig() OperationAIConfig {
	op := c.AI.Rewrite
	c.applyOperationDefaults(&op)
	if op.SchemaVersion == "" {
		op.SchemaVersion = SchemaStructured
	}

	sys, usr := &op.CustomPrompts.SystemPrompts, &op.CustomPrompts.UserPrompts
	global := c.AI.CustomPrompts
	fallback(&sys.RewriteResume, global.SystemPrompts.RewriteResume)
	fallback(&sys.RewriteResumeFile, global.SystemPrompts.RewriteResumeFile)
	fallback(&usr.RewriteResume, global.UserPrompts.RewriteResume)
	fallback(&usr.RewriteResumeFile, global.UserPrompts.RewriteResumeFile)
	return op
}

func fallback(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
