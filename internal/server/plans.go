package server

import (
	"context"

	"resumegenius/internal/plan"
	"resumegenius/internal/session"
	"resumegenius/internal/store"
)

// planOwners lists the store owners a committed plan is kept under: the
// session itself and, once known, the signed-in user.
func planOwners(sessionID, email string) []string {
	var owners []string
	if email != "" {
		owners = append(owners, email)
	}
	if sessionID != "" {
		owners = append(owners, store.SessionOwner(sessionID))
	}
	return owners
}

// restorePlan returns the plan a recreated session starts on
func (s *Server) restorePlan(ctx context.Context, claims *session.Claims) plan.Plan {
	if s.store == nil {
		return plan.Free
	}
	var email string
	if claims.User != nil {
		email = claims.User.Email
	}
	p, err := s.store.BestPlan(ctx, planOwners(claims.SessionID(), email)...)
	if err != nil {
		s.Logger.LogError(err, "Failed to restore committed plan", "session_id", claims.SessionID())
	}
	return p
}

// persistPlan records a committed plan so it survives eviction and restarts
func (s *Server) persistPlan(ctx context.Context, sessionID, email string, p plan.Plan) {
	if s.store == nil {
		return
	}
	for _, owner := range planOwners(sessionID, email) {
		if err := s.store.SavePlan(ctx, owner, p); err != nil {
			s.Logger.LogError(err, "Failed to persist committed plan", "session_id", sessionID, "plan", p.String())
		}
	}
}
