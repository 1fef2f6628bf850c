package types

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRewriteResultFlat(t *testing.T) {
	in := RewriteResult{Text: "JANE DOE\nPrincipal Engineer"}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"content":"JANE DOE\nPrincipal Engineer"}` {
		t.Errorf("unexpected wire form: %s", data)
	}

	var out RewriteResult
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.IsStructured() || out.Text != in.Text {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestRewriteResultStructured(t *testing.T) {
	in := RewriteResult{Structured: &StructuredResume{
		Header:  ResumeHeader{Name: "Jane Doe", Title: "Principal Engineer", LinkedIn: "in/jane"},
		Summary: "Builds platforms.",
		Experience: []ExperienceEntry{{
			Company: "Acme", Position: "Lead", DateRange: "2020 - Present",
			Bullets: []string{"Cut latency 40% by redesigning the cache tier"},
		}},
		Education: []EducationEntry{{School: "MIT", Degree: "BSc"}},
		Skills:    []SkillGroup{{Category: "Languages", Items: []string{"Go", "SQL"}}},
	}}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out RewriteResult
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.IsStructured() {
		t.Fatalf("expected structured result")
	}
	if !reflect.DeepEqual(in.Structured, out.Structured) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out.Structured, in.Structured)
	}
}

func TestRewriteResultRejectsBadContent(t *testing.T) {
	tests := map[string]string{
		"missing content": `{}`,
		"number content":  `{"content": 42}`,
		"not json":        `{"content":`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			var out RewriteResult
			if err := json.Unmarshal([]byte(payload), &out); err == nil {
				t.Errorf("expected error for %s", payload)
			}
		})
	}
}

func TestAnalysisResultClone(t *testing.T) {
	orig := &AnalysisResult{
		KeywordsMissing: []string{"Kubernetes"},
		Sections:        []SectionFeedback{{Title: "Summary"}},
	}
	clone := orig.Clone()
	clone.Sections[0].Title = "Changed"
	clone.KeywordsMissing[0] = "Changed"

	if orig.Sections[0].Title != "Summary" || orig.KeywordsMissing[0] != "Kubernetes" {
		t.Errorf("clone shares memory with original")
	}
	if (*AnalysisResult)(nil).Clone() != nil {
		t.Errorf("nil clone should be nil")
	}
}

func TestAnalysisResultFractionalScores(t *testing.T) {
	data := `{"overallScore":85.5,"summary":"ok","impactMetricsScore":39.4,"keywordsMissing":[],` +
		`"sections":[{"title":"Summary","score":72.0},{"title":"Skills","score":104},{"title":"Projects","score":-3}]}`

	var got AnalysisResult
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.OverallScore != 86 || got.ImpactMetricsScore != 39 {
		t.Errorf("overall = %d, impact = %d; want 86, 39", got.OverallScore, got.ImpactMetricsScore)
	}
	want := []Score{72, 100, 0}
	for i, s := range got.Sections {
		if s.Score != want[i] {
			t.Errorf("sections[%d].Score = %d, want %d", i, s.Score, want[i])
		}
	}
}

func TestScoreRejectsNonNumbers(t *testing.T) {
	var s Score
	if err := json.Unmarshal([]byte(`"high"`), &s); err == nil {
		t.Error("a string score should not decode")
	}
}
