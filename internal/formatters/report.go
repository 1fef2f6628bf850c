package formatters

import (
	"fmt"
	"strings"

	"resumegenius/internal/plan"
)

const lockedMarker = "[LOCKED - Upgrade to Professional to view]"

// ReportTextFormatter produces the plain text health check download
type ReportTextFormatter struct{}

func (f *ReportTextFormatter) Format(data any) (string, error) {
	r, err := asReport(data)
	if err != nil {
		return "", err
	}
	a := r.Analysis
	if a == nil {
		return "", fmt.Errorf("report has no analysis")
	}

	var b strings.Builder
	b.WriteString("RESUME GENIUS AI - HEALTH CHECK REPORT\n")
	b.WriteString(strings.Repeat("=", 42) + "\n\n")
	fmt.Fprintf(&b, "OVERALL SCORE: %d%%\n", a.OverallScore)
	fmt.Fprintf(&b, "IMPACT METRICS: %d%%\n\n", a.ImpactMetricsScore)
	fmt.Fprintf(&b, "EXECUTIVE SUMMARY:\n%s\n\n", a.Summary)
	fmt.Fprintf(&b, "CRITICAL KEYWORD GAPS:\n%s\n\n", strings.Join(a.KeywordsMissing, ", "))
	b.WriteString("SECTION BREAKDOWN:\n")
	b.WriteString("------------------\n")

	for i, s := range a.Sections {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, strings.ToUpper(s.Title))
		fmt.Fprintf(&b, "Score: %d%%\n", s.Score)
		if plan.IsSectionLocked(r.Plan, i) {
			b.WriteString("Feedback: " + lockedMarker + "\n")
			b.WriteString("Suggested Rewrite: " + lockedMarker + "\n")
			continue
		}
		fmt.Fprintf(&b, "Feedback: %s\n", s.Feedback)
		fmt.Fprintf(&b, "Optimized Text: %s\n", s.SuggestedRewrite)
	}
	return b.String(), nil
}

func (f *ReportTextFormatter) SupportedType() string { return typeReport }

// ReportMarkdownFormatter renders the health check as markdown
type ReportMarkdownFormatter struct{}

func (f *ReportMarkdownFormatter) Format(data any) (string, error) {
	r, err := asReport(data)
	if err != nil {
		return "", err
	}
	a := r.Analysis
	if a == nil {
		return "", fmt.Errorf("report has no analysis")
	}

	var b strings.Builder
	b.WriteString("# Resume Health Check Report\n\n")
	fmt.Fprintf(&b, "**Overall Score:** %d%%  \n", a.OverallScore)
	fmt.Fprintf(&b, "**Impact Metrics:** %d%%\n\n", a.ImpactMetricsScore)
	b.WriteString("## Executive Summary\n\n" + a.Summary + "\n\n")

	if len(a.KeywordsMissing) > 0 {
		b.WriteString("## Critical Keyword Gaps\n\n")
		for _, k := range a.KeywordsMissing {
			b.WriteString("- " + k + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Section Breakdown\n")
	for i, s := range a.Sections {
		fmt.Fprintf(&b, "\n### %d. %s (%d%%)\n\n", i+1, s.Title, s.Score)
		if plan.IsSectionLocked(r.Plan, i) {
			b.WriteString("_" + lockedMarker + "_\n")
			continue
		}
		b.WriteString("**Feedback:** " + s.Feedback + "\n\n")
		b.WriteString("**Optimized Text:**\n\n> " + strings.ReplaceAll(s.SuggestedRewrite, "\n", "\n> ") + "\n")
	}
	return b.String(), nil
}

func (f *ReportMarkdownFormatter) SupportedType() string { return typeReport }
