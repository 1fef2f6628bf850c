package ai

import (
	"strings"

	"resumegenius/internal/config"
)

// DefaultSystemPrompts are used when neither a file nor the config supplies one
var DefaultSystemPrompts = struct {
	AnalyzeResume string
	RewriteResume string
}{
	AnalyzeResume: `You are an elite executive career coach and ATS expert. You review resumes the way a senior recruiter at a top firm would: candid, specific, and focused on what gets interviews.

You never invent experience the candidate does not have. Every critique and every suggested rewrite must be traceable to the text you were given.`,

	RewriteResume: `You are a world-class executive resume writer. You turn ordinary resumes into high-impact, modern documents that pass applicant tracking systems and persuade hiring executives.

You keep every fact the candidate provided and never fabricate employers, titles, dates or degrees.`,
}

// DefaultUserPrompts are templates; %s receives the resume text
var DefaultUserPrompts = struct {
	AnalyzeResume string
	RewriteResume string
}{
	AnalyzeResume: `Analyze the following resume text for a "Professional Health Check".

CRITERIA:
1. IMPACT: Look for quantifiable metrics (percentages, dollar amounts, time saved).
2. VERBS: Replace weak, passive verbs with strong action verbs.
3. ATS: Identify missing high-value industry keywords.

Score the resume overall and on impact metrics from 0 to 100. Break the resume into its natural sections; for each one give the original text, specific feedback, a suggested rewrite and a 0-100 score.

Resume Data:
"""
%s
"""`,

	RewriteResume: `Completely reconstruct the provided resume into a high-impact, modern document.

RULES:
1. Use the "Action-Result" bullet point framework.
2. Every single achievement MUST include a quantifiable metric.
3. Use sophisticated, industry-specific vocabulary.

Original Resume:
"""
%s
"""`,
}

// rewriteFormatInstructions tell the model how to shape content per schema
var rewriteFormatInstructions = map[string]string{
	config.SchemaFlat:       "Format it as a clear text document with professional headings and return it in the content field.",
	config.SchemaStructured: "Return the resume decomposed into header, summary, experience, education and skills in the content object.",
}

// resolvePrompt picks the first non-empty of file, config and default
func resolvePrompt(fromFile, fromConfig, fromDefault string) string {
	if fromFile != "" {
		return fromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// formatUserPrompt substitutes the resume for the first %s in a template.
// Everything else is literal. Templates without a placeholder get the
// resume appended.
func formatUserPrompt(template, resume string) string {
	if strings.Contains(template, "%s") {
		return strings.Replace(template, "%s", resume, 1)
	}
	return template + "\n\nResume:\n\"\"\"\n" + resume + "\n\"\"\""
}

// analyzePrompts returns the system and user prompts for a health check
func analyzePrompts(cfg *config.OperationAIConfig, resume string) (string, string) {
	loaded := config.GetLoadedPrompts(config.OperationAnalyze)
	system := resolvePrompt(loaded.System, cfg.CustomPrompts.SystemPrompts.AnalyzeResume, DefaultSystemPrompts.AnalyzeResume)
	user := resolvePrompt(loaded.User, cfg.CustomPrompts.UserPrompts.AnalyzeResume, DefaultUserPrompts.AnalyzeResume)
	return system, formatUserPrompt(user, resume)
}

// rewritePrompts returns the system and user prompts for a full rewrite
func rewritePrompts(cfg *config.OperationAIConfig, resume string) (string, string) {
	loaded := config.GetLoadedPrompts(config.OperationRewrite)
	system := resolvePrompt(loaded.System, cfg.CustomPrompts.SystemPrompts.RewriteResume, DefaultSystemPrompts.RewriteResume)
	user := resolvePrompt(loaded.User, cfg.CustomPrompts.UserPrompts.RewriteResume, DefaultUserPrompts.RewriteResume)

	prompt := formatUserPrompt(user, resume)
	if instr := rewriteFormatInstructions[cfg.SchemaVersion]; instr != "" {
		prompt += "\n\n" + instr
	}
	return system, prompt
}
