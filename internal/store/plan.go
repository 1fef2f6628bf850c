package store

import (
	"context"

	"resumegenius/internal/errors"
	"resumegenius/internal/plan"
)

// PlanKeyPrefix namespaces committed plan entries
const PlanKeyPrefix = "plan_"

// PlanKey derives the storage key for the plan owned by owner, either a
// user email or an anonymous session reference.
func PlanKey(owner string) string {
	return PlanKeyPrefix + owner
}

// SessionOwner names the plan owner for a session that has no user yet
func SessionOwner(sessionID string) string {
	return "session:" + sessionID
}

// SavePlan records the plan committed for owner. Free is never stored.
func (s *Store) SavePlan(ctx context.Context, owner string, p plan.Plan) error {
	if owner == "" || !p.Valid() || p == plan.Free {
		return nil
	}

	if err := s.backend.Set(ctx, PlanKey(owner), []byte(p)); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "Failed to write plan", err).
			WithContext("key", PlanKey(owner))
	}

	s.logger.Debug("Stored plan", "key", PlanKey(owner), "plan", p.String())
	return nil
}

// LoadPlan returns the committed plan for owner, Free when none is stored
func (s *Store) LoadPlan(ctx context.Context, owner string) (plan.Plan, error) {
	if owner == "" {
		return plan.Free, nil
	}

	data, ok, err := s.backend.Get(ctx, PlanKey(owner))
	if err != nil {
		return plan.Free, errors.NewStorageError(errors.ErrCodeStorageFailed, "Failed to read plan", err).
			WithContext("key", PlanKey(owner))
	}
	if !ok {
		return plan.Free, nil
	}

	p, valid := plan.Parse(string(data))
	if !valid {
		return plan.Free, errors.NewStorageError(errors.ErrCodeCorruptState, "Stored plan is not valid", nil).
			WithContext("key", PlanKey(owner))
	}
	return p, nil
}

// BestPlan returns the highest committed plan across owners. Unreadable
// entries are skipped and the first such error is returned with the result.
func (s *Store) BestPlan(ctx context.Context, owners ...string) (plan.Plan, error) {
	best := plan.Free
	var firstErr error
	for _, owner := range owners {
		p, err := s.LoadPlan(ctx, owner)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if p.Rank() > best.Rank() {
			best = p
		}
	}
	return best, firstErr
}
