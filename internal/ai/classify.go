package ai

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"

	"resumegenius/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// classifyError maps an upstream failure to an AppError. Nothing here is
// retried; the code only tells the caller what kind of failure it was.
func classifyError(err error, operation string) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}

	msg := "Failed to generate content for " + operation
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewAIError(errors.ErrCodeAITimeout, "AI request timed out for "+operation, err)
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return errors.NewAIError(errors.ErrCodeAIServiceFailed, "AI service temporarily unavailable for "+operation, err)
	}

	if code := statusCode(err); code == http.StatusTooManyRequests {
		return errors.NewAIError(errors.ErrCodeAIRateLimited, "AI rate limit reached for "+operation, err)
	} else if code == http.StatusGatewayTimeout {
		return errors.NewAIError(errors.ErrCodeAITimeout, "AI request timed out for "+operation, err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewAIError(errors.ErrCodeAITimeout, "AI request timed out for "+operation, err)
	}

	return errors.NewAIError(errors.ErrCodeAIServiceFailed, msg, err)
}

// statusCode extracts an HTTP status from either API error flavour
func statusCode(err error) int {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return genaiErr.Code
	}
	var genaiPtr *genai.APIError
	if stderrors.As(err, &genaiPtr) && genaiPtr != nil {
		return genaiPtr.Code
	}
	return 0
}
