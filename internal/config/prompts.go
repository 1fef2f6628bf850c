package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LoadedPrompts holds prompt text read from files for one operation
type LoadedPrompts struct {
	System string
	User   string
}

var loaded = struct {
	sync.RWMutex
	ops map[string]LoadedPrompts
}{ops: map[string]LoadedPrompts{}}

// GetLoadedPrompts returns the file prompts for an operation
func GetLoadedPrompts(operation string) LoadedPrompts {
	loaded.RLock()
	defer loaded.RUnlock()
	return loaded.ops[operation]
}

type promptFile struct {
	operation string
	kind      string // system or user
	path      string
}

// promptFiles lists every configured prompt file after global fallbacks
func (c *Config) promptFiles() []promptFile {
	analyze := c.GetAnalyzeConfig().CustomPrompts
	rewrite := c.GetRewriteConfig().CustomPrompts

	all := []promptFile{
		{OperationAnalyze, "system", analyze.SystemPrompts.AnalyzeResumeFile},
		{OperationAnalyze, "user", analyze.UserPrompts.AnalyzeResumeFile},
		{OperationRewrite, "system", rewrite.SystemPrompts.RewriteResumeFile},
		{OperationRewrite, "user", rewrite.UserPrompts.RewriteResumeFile},
	}
	out := all[:0]
	for _, f := range all {
		if f.path != "" {
			out = append(out, f)
		}
	}
	return out
}

// PromptFilePaths returns the absolute paths of all configured prompt files
func (c *Config) PromptFilePaths() []string {
	seen := map[string]bool{}
	var paths []string
	for _, f := range c.promptFiles() {
		abs, err := filepath.Abs(f.path)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		paths = append(paths, abs)
	}
	return paths
}

// LoadPromptFiles reads every configured prompt file. The loaded set is
// replaced only when all files read cleanly, so a failed reload keeps
// the previous prompts.
func (c *Config) LoadPromptFiles() error {
	next := map[string]LoadedPrompts{}
	for _, f := range c.promptFiles() {
		content, err := readPromptFile(f)
		if err != nil {
			return err
		}
		p := next[f.operation]
		if f.kind == "system" {
			p.System = content
		} else {
			p.User = content
		}
		next[f.operation] = p
	}

	loaded.Lock()
	loaded.ops = next
	loaded.Unlock()

	if len(next) == 0 {
		log.Println("[CONFIG] No custom prompt files configured - using built-in or inline prompts")
	} else {
		log.Printf("[CONFIG] Loaded custom prompt files for %d operation(s)", len(next))
	}
	return nil
}

func readPromptFile(f promptFile) (string, error) {
	abs, err := filepath.Abs(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s %s prompt file '%s': %w", f.operation, f.kind, f.path, err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", f.operation, f.kind, abs, err)
	}
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", f.operation, f.kind, abs)
	}
	log.Printf("[CONFIG] Loaded %s %s prompt from %s (%d characters)", f.operation, f.kind, abs, len(trimmed))
	return trimmed, nil
}

// validatePromptFiles reports every missing prompt file at once
func (c *Config) validatePromptFiles() error {
	var problems []string
	for _, f := range c.promptFiles() {
		abs, err := filepath.Abs(f.path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid path for %s %s prompt: %s", f.operation, f.kind, f.path))
			continue
		}
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("%s %s prompt file not found: %s", f.operation, f.kind, abs))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "\n"))
	}
	return nil
}
