package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeIO          ErrorType = "io"
	ErrorTypeAI          ErrorType = "ai"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeEntitlement ErrorType = "entitlement"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypePayment     ErrorType = "payment"
	ErrorTypeSession     ErrorType = "session"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewAIError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAI, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

func NewEntitlementError(code, message string) *AppError {
	return newAppError(ErrorTypeEntitlement, code, message, nil)
}

func NewStorageError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeStorage, code, message, cause)
}

func NewPaymentError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypePayment, code, message, cause)
}

func NewSessionError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeSession, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// As reports whether err wraps an *AppError and returns it.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err wraps an *AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// HTTPStatus maps an error onto the status code the API answers with.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case ErrorTypeValidation:
		if appErr.Code == ErrCodeFileTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case ErrorTypeSession:
		return http.StatusUnauthorized
	case ErrorTypeEntitlement:
		return http.StatusPaymentRequired
	case ErrorTypeAI:
		if appErr.Code == ErrCodeAIRateLimited {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case ErrorTypeNetwork:
		return http.StatusBadGateway
	case ErrorTypePayment:
		if appErr.Code == ErrCodeWebhookInvalid {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger
func NewLogger(level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return &Logger{logger: slog.New(handler)}
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	if appErr, ok := As(err); ok {
		logArgs := []any{
			"error_type", appErr.Type,
			"error_code", appErr.Code,
			"error_message", appErr.Message,
		}
		if appErr.Cause != nil {
			logArgs = append(logArgs, "cause", appErr.Cause.Error())
		}
		for key, value := range appErr.Context {
			logArgs = append(logArgs, key, value)
		}
		logArgs = append(logArgs, args...)

		l.logger.Error(message, logArgs...)
		return
	}

	logArgs := append([]any{"error", err.Error()}, args...)
	l.logger.Error(message, logArgs...)
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	return NewLogger(slogLevel), nil
}

// Common error codes
const (
	ErrCodeFileNotFound          = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable       = "FILE_NOT_READABLE"
	ErrCodeFileTooLarge          = "FILE_TOO_LARGE"
	ErrCodeInvalidFormat         = "INVALID_FORMAT"
	ErrCodeUnsupportedFileType   = "UNSUPPORTED_FILE_TYPE"
	ErrCodeExtractionFailed      = "EXTRACTION_FAILED"
	ErrCodeEmptyInput            = "EMPTY_INPUT"
	ErrCodeAIServiceFailed       = "AI_SERVICE_FAILED"
	ErrCodeAITimeout             = "AI_TIMEOUT"
	ErrCodeAIRateLimited         = "AI_RATE_LIMITED"
	ErrCodeAIResponseParseFailed = "AI_RESPONSE_PARSE_FAILED"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeInvalidPlan           = "INVALID_PLAN"
	ErrCodePlanRequired          = "PLAN_REQUIRED"
	ErrCodeNoStagedPlan          = "NO_STAGED_PLAN"
	ErrCodeNoAnalysis            = "NO_ANALYSIS"
	ErrCodeNoRewrite             = "NO_REWRITE"
	ErrCodeCorruptState          = "CORRUPT_STATE"
	ErrCodeStorageFailed         = "STORAGE_FAILED"
	ErrCodeSessionInvalid        = "SESSION_INVALID"
	ErrCodeSessionNotFound       = "SESSION_NOT_FOUND"
	ErrCodePaymentFailed         = "PAYMENT_FAILED"
	ErrCodeWebhookInvalid        = "WEBHOOK_INVALID"
	ErrCodeMissingAPIKey         = "MISSING_API_KEY"
	ErrCodeNetworkTimeout        = "NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable    = "NETWORK_UNAVAILABLE"
	ErrCodeInvalidConfig         = "INVALID_CONFIG"
)
