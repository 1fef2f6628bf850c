package common

import (
	"fmt"
	"slices"
	"strings"

	"resumegenius/internal/errors"
	"resumegenius/internal/plan"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %s",
			format, strings.Join(supportedFormats, ", ")), nil)
}

// ResolvePlan parses the --plan flag. Empty means FREE.
func ResolvePlan(raw string) (plan.Plan, error) {
	if strings.TrimSpace(raw) == "" {
		return plan.Free, nil
	}
	p, ok := plan.Parse(raw)
	if !ok {
		return "", errors.NewValidationError(errors.ErrCodeInvalidPlan,
			fmt.Sprintf("unknown plan %q", raw), nil)
	}
	return p, nil
}

// RequireFullRewrite rejects plans that do not include the full rewrite
func RequireFullRewrite(p plan.Plan) error {
	if plan.CanFullRewrite(p) {
		return nil
	}
	return errors.NewEntitlementError(errors.ErrCodePlanRequired,
		fmt.Sprintf("The full rewrite needs the %s or %s plan (current plan: %s)",
			plan.Unlimited, plan.SuperPremium, p))
}
