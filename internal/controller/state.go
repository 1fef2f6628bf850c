package controller

import (
	"time"

	"resumegenius/internal/plan"
	"resumegenius/internal/types"
)

// View is the screen currently shown to the user
type View string

const (
	ViewLanding     View = "landing"
	ViewAnalyzing   View = "analyzing"
	ViewResults     View = "results"
	ViewPricing     View = "pricing"
	ViewFullRewrite View = "full-rewrite"
)

// User-facing messages
const (
	StatusInitializing = "Initializing AI engine..."
	StatusRewriting    = "Executive AI Writer is reconstructing your profile..."

	NoticeAnalysisFailed = "AI Analysis failed. Please try a different resume or refresh the page."
	NoticeUploadFirst    = "Please upload your resume first."
	NoticeRewriteFailed  = "Professional rewrite failed. Please try again."
)

// DefaultStatusMessages rotate while an analysis is outstanding
var DefaultStatusMessages = []string{
	"Parsing professional history...",
	"Identifying keyword gaps...",
	"Calculating impact scores...",
	"Generating executive summary...",
}

// State is an immutable snapshot of a controller
type State struct {
	View            View                  `json:"view"`
	Analysis        *types.AnalysisResult `json:"analysis,omitempty"`
	Rewrite         *types.RewriteResult  `json:"rewrite,omitempty"`
	OriginalText    string                `json:"originalText,omitempty"`
	Plan            plan.Plan             `json:"plan"`
	User            *types.User           `json:"user,omitempty"`
	PendingPlan     plan.Plan             `json:"pendingPlan,omitempty"`
	PendingText     string                `json:"-"`
	HasPendingText  bool                  `json:"hasPendingText"`
	StatusMessage   string                `json:"statusMessage,omitempty"`
	Notice          string                `json:"notice,omitempty"`
	AuthRequired    bool                  `json:"authRequired"`
	PaymentRequired bool                  `json:"paymentRequired"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// clone copies the mutable parts so callers never alias controller memory
func (s State) clone() State {
	out := s
	out.Analysis = s.Analysis.Clone()
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

// Redacted returns the snapshot with sections the plan does not cover blanked
func (s State) Redacted() State {
	out := s
	out.Analysis = plan.ApplyLocks(s.Plan, s.Analysis)
	return out
}
