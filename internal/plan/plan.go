// Package plan models subscription tiers and the feature gates they unlock.
package plan

import (
	"strings"

	"resumegenius/internal/types"
)

// Plan is an ordered subscription tier
type Plan string

const (
	Free         Plan = "FREE"
	Basic        Plan = "BASIC"
	Unlimited    Plan = "UNLIMITED"
	SuperPremium Plan = "SUPER_PREMIUM"
)

var ranks = map[Plan]int{
	Free:         0,
	Basic:        1,
	Unlimited:    2,
	SuperPremium: 3,
}

// All returns the plans in ascending order
func All() []Plan {
	return []Plan{Free, Basic, Unlimited, SuperPremium}
}

// Parse accepts a plan name in any case
func Parse(s string) (Plan, bool) {
	p := Plan(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := ranks[p]
	return p, ok
}

// Valid reports whether p is a known plan
func (p Plan) Valid() bool {
	_, ok := ranks[p]
	return ok
}

// Rank returns the position of p in the tier ordering, -1 if unknown
func (p Plan) Rank() int {
	if r, ok := ranks[p]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether p is the same tier as other or above it
func (p Plan) AtLeast(other Plan) bool {
	return p.Rank() >= other.Rank()
}

func (p Plan) String() string {
	return string(p)
}

// IsSectionLocked reports whether the section at index is hidden for p.
// Only the first section is visible on the free tier.
func IsSectionLocked(p Plan, index int) bool {
	return p == Free && index != 0
}

// CanFullRewrite reports whether p includes the full resume rewrite
func CanFullRewrite(p Plan) bool {
	return p == Unlimited || p == SuperPremium
}

// MarkFreeSections forces the free flag onto the first section only,
// whatever the model returned.
func MarkFreeSections(sections []types.SectionFeedback) {
	for i := range sections {
		sections[i].IsFree = i == 0
	}
}

// ApplyLocks returns a copy of the analysis with locked sections redacted
// for p. Title and score stay visible.
func ApplyLocks(p Plan, analysis *types.AnalysisResult) *types.AnalysisResult {
	if analysis == nil {
		return nil
	}
	out := analysis.Clone()
	for i := range out.Sections {
		if IsSectionLocked(p, i) {
			out.Sections[i].Feedback = ""
			out.Sections[i].SuggestedRewrite = ""
		}
	}
	return out
}
