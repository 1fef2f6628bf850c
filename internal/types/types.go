package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// AnalyzeResumeInput represents the input for a resume health check
type AnalyzeResumeInput struct {
	ResumeText string `json:"resumeText"`
}

// RewriteResumeInput represents the input for a full resume rewrite
type RewriteResumeInput struct {
	ResumeText string `json:"resumeText"`
}

// Score is a 0-100 rating. Models sometimes answer with fractions or
// out-of-range values, so decoding rounds half away from zero and clamps.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("score must be a number: %w", err)
	}
	*s = Score(math.Max(0, math.Min(100, math.Round(f))))
	return nil
}

// SectionFeedback is one critique unit of a resume
type SectionFeedback struct {
	Title            string `json:"title"`
	OriginalText     string `json:"originalText"`
	Feedback         string `json:"feedback"`
	SuggestedRewrite string `json:"suggestedRewrite"`
	Score            Score  `json:"score"`
	IsFree           bool   `json:"isFree"`
}

// AnalysisResult represents the health check returned by the model
type AnalysisResult struct {
	OverallScore       Score             `json:"overallScore"`
	Summary            string            `json:"summary"`
	ImpactMetricsScore Score             `json:"impactMetricsScore"`
	KeywordsMissing    []string          `json:"keywordsMissing"`
	Sections           []SectionFeedback `json:"sections"`
}

// Clone returns a deep copy so snapshots never share slices with live state.
func (a *AnalysisResult) Clone() *AnalysisResult {
	if a == nil {
		return nil
	}
	out := *a
	out.KeywordsMissing = append([]string(nil), a.KeywordsMissing...)
	out.Sections = append([]SectionFeedback(nil), a.Sections...)
	return &out
}

// ResumeHeader holds the contact block of a structured resume
type ResumeHeader struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
}

// ExperienceEntry is a single position in a structured resume
type ExperienceEntry struct {
	Company   string   `json:"company"`
	Position  string   `json:"position"`
	DateRange string   `json:"dateRange"`
	Location  string   `json:"location"`
	Bullets   []string `json:"bullets"`
}

// EducationEntry is a single degree in a structured resume
type EducationEntry struct {
	School    string `json:"school"`
	Degree    string `json:"degree"`
	DateRange string `json:"dateRange"`
	Location  string `json:"location"`
}

// SkillGroup is a categorized list of skills
type SkillGroup struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// StructuredResume is the fully decomposed rewrite output
type StructuredResume struct {
	Header     ResumeHeader      `json:"header"`
	Summary    string            `json:"summary"`
	Experience []ExperienceEntry `json:"experience"`
	Education  []EducationEntry  `json:"education"`
	Skills     []SkillGroup      `json:"skills"`
}

// RewriteResult is either a flat document or a structured resume.
// On the wire it is always {"content": <string|object>}.
type RewriteResult struct {
	Text       string
	Structured *StructuredResume
}

// IsStructured reports whether the rewrite carries a structured resume
func (r *RewriteResult) IsStructured() bool {
	return r != nil && r.Structured != nil
}

type rewriteEnvelope struct {
	Content json.RawMessage `json:"content"`
}

func (r RewriteResult) MarshalJSON() ([]byte, error) {
	var content any = r.Text
	if r.Structured != nil {
		content = r.Structured
	}
	return json.Marshal(struct {
		Content any `json:"content"`
	}{Content: content})
}

func (r *RewriteResult) UnmarshalJSON(data []byte) error {
	var env rewriteEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	raw := bytes.TrimSpace(env.Content)
	if len(raw) == 0 {
		return fmt.Errorf("rewrite result has no content")
	}

	switch raw[0] {
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return err
		}
		*r = RewriteResult{Text: text}
	case '{':
		var structured StructuredResume
		if err := json.Unmarshal(raw, &structured); err != nil {
			return err
		}
		*r = RewriteResult{Structured: &structured}
	default:
		return fmt.Errorf("rewrite content must be a string or an object")
	}
	return nil
}

// User is the minimal identity attached to a session
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
