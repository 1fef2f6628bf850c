package formatters

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"resumegenius/internal/plan"
	"resumegenius/internal/types"
)

func sampleAnalysis() *types.AnalysisResult {
	return &types.AnalysisResult{
		OverallScore:       72,
		ImpactMetricsScore: 40,
		Summary:            "Solid engineer, weak metrics.",
		KeywordsMissing:    []string{"Kubernetes", "CI/CD"},
		Sections: []types.SectionFeedback{
			{Title: "Summary", Feedback: "Too vague", SuggestedRewrite: "Led 5 teams", Score: 60, IsFree: true},
			{Title: "Experience", Feedback: "Add numbers", SuggestedRewrite: "Cut costs 30%", Score: 55},
			{Title: "Skills", Feedback: "Group them", SuggestedRewrite: "Go, SQL", Score: 80},
		},
	}
}

func TestReportTextFormat(t *testing.T) {
	r := NewFormatterRegistry()

	out, err := r.Format(Report{Analysis: sampleAnalysis(), Plan: plan.Basic}, FormatText)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	want := "RESUME GENIUS AI - HEALTH CHECK REPORT\n" +
		"==========================================\n\n" +
		"OVERALL SCORE: 72%\n" +
		"IMPACT METRICS: 40%\n\n" +
		"EXECUTIVE SUMMARY:\nSolid engineer, weak metrics.\n\n" +
		"CRITICAL KEYWORD GAPS:\nKubernetes, CI/CD\n\n" +
		"SECTION BREAKDOWN:\n" +
		"------------------\n" +
		"\n[1] SUMMARY\nScore: 60%\nFeedback: Too vague\nOptimized Text: Led 5 teams\n" +
		"\n[2] EXPERIENCE\nScore: 55%\nFeedback: Add numbers\nOptimized Text: Cut costs 30%\n" +
		"\n[3] SKILLS\nScore: 80%\nFeedback: Group them\nOptimized Text: Go, SQL\n"
	if out != want {
		t.Errorf("report mismatch\n got: %q\nwant: %q", out, want)
	}
}

func TestReportTextLocksSectionsOnFreePlan(t *testing.T) {
	r := NewFormatterRegistry()
	out, err := r.Format(&Report{Analysis: sampleAnalysis(), Plan: plan.Free}, FormatText)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	if !strings.Contains(out, "Feedback: Too vague") {
		t.Error("first section should be visible on FREE")
	}
	if strings.Count(out, lockedMarker) != 4 {
		t.Errorf("expected 4 locked markers (2 sections x 2 fields), got %d", strings.Count(out, lockedMarker))
	}
	for _, hidden := range []string{"Add numbers", "Cut costs", "Group them"} {
		if strings.Contains(out, hidden) {
			t.Errorf("locked content %q leaked", hidden)
		}
	}
	if !strings.Contains(out, "[2] EXPERIENCE\nScore: 55%") {
		t.Error("locked sections keep title and score")
	}
}

func TestReportJSONRedacts(t *testing.T) {
	out, err := NewFormatterRegistry().Format(Report{Analysis: sampleAnalysis(), Plan: plan.Free}, FormatJSON)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	var decoded struct {
		Plan     string               `json:"plan"`
		Analysis types.AnalysisResult `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Plan != "FREE" {
		t.Errorf("plan = %s", decoded.Plan)
	}
	if decoded.Analysis.Sections[1].Feedback != "" || decoded.Analysis.Sections[0].Feedback == "" {
		t.Errorf("unexpected redaction: %+v", decoded.Analysis.Sections)
	}
}

func TestReportMarkdown(t *testing.T) {
	out, err := NewFormatterRegistry().Format(Report{Analysis: sampleAnalysis(), Plan: plan.Unlimited}, FormatMarkdown)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	for _, want := range []string{"# Resume Health Check Report", "- Kubernetes", "### 2. Experience (55%)", "> Cut costs 30%"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func structuredRewrite() types.RewriteResult {
	return types.RewriteResult{Structured: &types.StructuredResume{
		Header:  types.ResumeHeader{Name: "Jane Doe", Title: "Staff Engineer", Email: "jane@example.com", Location: "Berlin"},
		Summary: "Builds reliable systems.",
		Experience: []types.ExperienceEntry{
			{Company: "Acme", Position: "Lead", DateRange: "2020-2024", Location: "Remote", Bullets: []string{"Cut latency 40%"}},
		},
		Education: []types.EducationEntry{{School: "TU Berlin", Degree: "MSc CS", DateRange: "2018"}},
		Skills:    []types.SkillGroup{{Category: "Languages", Items: []string{"Go", "Rust"}}},
	}}
}

func TestRewriteText(t *testing.T) {
	r := NewFormatterRegistry()

	flat, err := r.Format(types.RewriteResult{Text: "PLAIN RESUME"}, FormatText)
	if err != nil || flat != "PLAIN RESUME" {
		t.Errorf("flat = %q, %v", flat, err)
	}

	out, err := r.Format(structuredRewrite(), FormatText)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	for _, want := range []string{
		"JANE DOE\nStaff Engineer\njane@example.com | Berlin\n",
		"PROFESSIONAL SUMMARY\nBuilds reliable systems.",
		"Lead - Acme\nRemote | 2020-2024\n  - Cut latency 40%",
		"MSc CS - TU Berlin",
		"Languages: Go, Rust",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "EXPERIENCE") > strings.Index(out, "EDUCATION") {
		t.Error("experience must precede education")
	}
}

func TestRewriteMarkdown(t *testing.T) {
	rw := structuredRewrite()
	out, err := NewFormatterRegistry().Format(&rw, FormatMarkdown)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	for _, want := range []string{"# Jane Doe", "## Experience", "- Cut latency 40%", "- **Languages:** Go, Rust"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestFormatUnknown(t *testing.T) {
	if _, err := NewFormatterRegistry().Format(Report{Analysis: sampleAnalysis()}, "pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := NewFormatterRegistry().Format(42, FormatText); err == nil {
		t.Error("expected error for unsupported type in text")
	}
}

func TestFileNames(t *testing.T) {
	now := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		got, want string
	}{
		{ReportFileName(now, FormatText), "Resume_Analysis_Report_2024-05-01.txt"},
		{ReportFileName(now, FormatJSON), "Resume_Analysis_Report_2024-05-01.json"},
		{RewriteFileName(now, FormatText), "Optimized_Resume_2024-05-01.txt"},
		{RewriteFileName(now, FormatMarkdown), "Optimized_Resume_2024-05-01.md"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %s, want %s", tt.got, tt.want)
		}
	}
}

func TestGetSupportedFormats(t *testing.T) {
	got := strings.Join(NewFormatterRegistry().GetSupportedFormats(), ",")
	if got != "json,markdown,text" {
		t.Errorf("formats = %s", got)
	}
}
