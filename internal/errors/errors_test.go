package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorFormatting(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError(ErrCodeStorageFailed, "failed to save rewrite", cause)

	if got, want := err.Error(), "STORAGE_FAILED: failed to save rewrite (caused by: disk full)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() did not return the cause")
	}

	plain := NewValidationError(ErrCodeEmptyInput, "resume text is empty", nil)
	if got, want := plain.Error(), "EMPTY_INPUT: resume text is empty"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithContext(t *testing.T) {
	err := NewValidationError(ErrCodeUnsupportedFileType, "unsupported", nil).
		WithContext("extension", ".rtf").
		WithContext("size", 12)

	if len(err.Context) != 2 {
		t.Fatalf("expected 2 context entries, got %d", len(err.Context))
	}
	if err.Context["extension"] != ".rtf" {
		t.Errorf("extension = %v", err.Context["extension"])
	}
}

func TestAsAndHasCode(t *testing.T) {
	inner := NewAIError(ErrCodeAITimeout, "timed out", nil)
	wrapped := fmt.Errorf("analyze: %w", inner)

	got, ok := As(wrapped)
	if !ok || got != inner {
		t.Fatalf("As did not unwrap to the AppError")
	}
	if !HasCode(wrapped, ErrCodeAITimeout) {
		t.Errorf("HasCode should match wrapped code")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeAITimeout) {
		t.Errorf("HasCode should not match a plain error")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError(ErrCodeEmptyInput, "", nil), http.StatusBadRequest},
		{"too large", NewValidationError(ErrCodeFileTooLarge, "", nil), http.StatusRequestEntityTooLarge},
		{"session", NewSessionError(ErrCodeSessionInvalid, "", nil), http.StatusUnauthorized},
		{"entitlement", NewEntitlementError(ErrCodePlanRequired, ""), http.StatusPaymentRequired},
		{"ai", NewAIError(ErrCodeAIServiceFailed, "", nil), http.StatusBadGateway},
		{"ai rate limited", NewAIError(ErrCodeAIRateLimited, "", nil), http.StatusTooManyRequests},
		{"payment", NewPaymentError(ErrCodePaymentFailed, "", nil), http.StatusBadGateway},
		{"bad webhook", NewPaymentError(ErrCodeWebhookInvalid, "", nil), http.StatusBadRequest},
		{"storage", NewStorageError(ErrCodeStorageFailed, "", nil), http.StatusInternalServerError},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level); err != nil {
			t.Errorf("New(%q) returned error: %v", level, err)
		}
	}
	if _, err := New("verbose"); err == nil {
		t.Errorf("New(verbose) should fail")
	}
}
