package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"resumegenius/internal/errors"
	"resumegenius/internal/plan"

	"github.com/go-playground/validator/v10"
)

const defaultHealthCheckTimeout = 5 * time.Second

func (s *Server) getHealthCheckTimeout() time.Duration {
	if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
		return t
	}
	return defaultHealthCheckTimeout
}

// healthHandler reports AI model availability, circuit breakers, storage and certificates
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "resumegenius",
		"version": s.Version,
	}
	healthy := true

	aiStatus := map[string]any{}
	breakers := map[string]any{}
	for _, client := range []any{s.analyzer, s.rewriter} {
		mr, ok := client.(modelReporter)
		if !ok {
			continue
		}
		info := mr.GetModelInfo(ctx)
		aiStatus[mr.Operation()] = info
		breakers[mr.Operation()] = mr.Stats()
		if info == nil || !info.Available {
			healthy = false
		}
	}
	response["ai_models"] = aiStatus
	response["circuit_breakers"] = breakers

	if s.store != nil {
		storage := map[string]any{"backend": s.AppConfig.Storage.Backend, "healthy": true}
		if err := s.store.Ping(ctx); err != nil {
			storage["healthy"] = false
			storage["error"] = err.Error()
			healthy = false
		}
		response["storage"] = storage
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkCertificateHealth flags certificates close to expiry
func (s *Server) checkCertificateHealth() map[string]any {
	if s.Certs == nil {
		return nil
	}

	certStatus := make(map[string]any)
	timeToExpiry, err := s.Certs.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	criticalThreshold := 24 * time.Hour
	warningThreshold := 7 * 24 * time.Hour

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= criticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= warningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}

	autoReload := map[string]any{"enabled": s.TLSConfig.AutoReload.Enabled}
	if s.Watcher != nil {
		autoReload["file_watcher_running"] = s.Watcher.IsRunning()
		autoReload["watched_files"] = s.Watcher.GetWatchedFiles()
	}
	certStatus["auto_reload"] = autoReload
	certStatus["metrics"] = s.Certs.Metrics()

	return certStatus
}

// statsHandler provides server statistics
func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	response := map[string]any{
		"service": "resumegenius",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_upload_bytes":       s.extractor.MaxFileSize(),
		},
		"sessions": map[string]any{
			"active":       s.registry.Len(),
			"idle_timeout": s.AppConfig.Session.IdleTimeout.String(),
		},
		"billing_provider": s.billing.Name(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	ai := map[string]any{}
	for _, client := range []any{s.analyzer, s.rewriter} {
		if mr, ok := client.(modelReporter); ok {
			ai[mr.Operation()] = mr.Stats()
		}
	}
	response["ai"] = ai

	writeJSON(w, http.StatusOK, response)
}

// plansHandler lists the purchasable offerings
func (s *Server) plansHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plans": plan.Catalog()})
}

// decodeAndValidate parses a JSON body into v and runs its validate tags.
// It writes the error response itself and reports whether to continue.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := parseJSONRequest(r, v); err != nil {
		s.writeAppError(w, r, err)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, formatValidationError(err), nil))
		return false
	}
	return true
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", nil)
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if isMaxBytesError(err) {
			return errors.NewValidationError(errors.ErrCodeFileTooLarge, "request body too large", err)
		}
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON", err)
	}
	return nil
}

func isMaxBytesError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return stderrors.As(err, &maxBytesErr)
}

// formatValidationError turns validator errors into one readable line
func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+fe.Param())
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func errorResponse(err error) *ErrorResponse {
	if appErr, ok := errors.As(err); ok {
		return &ErrorResponse{Error: appErr.Code, Message: appErr.Message}
	}
	return &ErrorResponse{Error: "INTERNAL_ERROR", Message: "Internal server error"}
}

// writeAppError answers with the status mapped from err and logs server faults
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	} else {
		s.Logger.Debug("Request rejected", "endpoint", r.URL.Path, "status", status, "error", err.Error())
	}
	writeJSON(w, status, errorResponse(err))
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, code, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
