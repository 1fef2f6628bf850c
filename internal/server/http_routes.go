package server

import (
	"context"
	"net/http"

	"resumegenius/internal/controller"
	"resumegenius/internal/errors"
	"resumegenius/internal/session"
)

// sessionHandlerFunc handles a request bound to a session's controller
type sessionHandlerFunc func(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, claims *session.Claims)

// Handler returns the full HTTP handler, instrumented when observability is on
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	limited := s.rateLimitMiddleware()
	sized := s.requestSizeLimitMiddleware(s.MaxRequestSize)
	api := func(h sessionHandlerFunc) http.Handler {
		return limited(sized(s.sessionMiddleware(h)))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /stats", s.authMiddleware(http.HandlerFunc(s.statsHandler)))
	mux.HandleFunc("GET /api/plans", s.plansHandler)

	mux.Handle("POST /api/session", limited(http.HandlerFunc(s.createSessionHandler)))
	mux.Handle("POST /api/auth", api(s.authHandler))
	mux.Handle("POST /api/submit", api(s.submitHandler))
	mux.Handle("POST /api/extract", limited(s.requestSizeLimitMiddleware(s.uploadLimit())(s.sessionMiddleware(s.extractHandler))))
	mux.Handle("POST /api/rewrite", api(s.rewriteHandler))
	mux.Handle("POST /api/navigate", api(s.navigateHandler))
	mux.Handle("POST /api/plan/select", api(s.selectPlanHandler))
	mux.Handle("POST /api/payment/complete", api(s.completePaymentHandler))
	mux.Handle("POST /api/billing/webhook", http.HandlerFunc(s.webhookHandler))
	mux.Handle("GET /api/state", api(s.stateHandler))
	mux.Handle("GET /api/report", api(s.reportHandler))
	mux.Handle("GET /api/rewrite/download", api(s.rewriteDownloadHandler))

	// the API never falls back to the SPA
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, "NOT_FOUND", "Unknown API endpoint", http.StatusNotFound)
	})
	mux.Handle("/", newSPAHandler(s.AppConfig.Server.StaticDir))

	return mux
}

// authMiddleware protects operator endpoints with the configured API keys
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, errors.ErrCodeMissingAPIKey, "X-API-Key header required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, errors.ErrCodeMissingAPIKey, "Unauthorized access", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware resolves the bearer token to a session controller
func (s *Server) sessionMiddleware(next sessionHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := session.ExtractBearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.writeAppError(w, r, errors.NewSessionError(errors.ErrCodeSessionInvalid, "Authorization Bearer session token required", nil))
			return
		}
		claims, err := s.sessions.Parse(token)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}

		ctx := session.WithClaims(r.Context(), claims)
		ctrl := s.controllerFor(ctx, claims)
		next(w, r.WithContext(ctx), ctrl, claims)
	})
}

// controllerFor returns the session's controller. A session that was
// evicted, or issued by another replica, starts over on landing with its
// committed plan and its user signed in again so the stored rewrite is
// restored.
func (s *Server) controllerFor(ctx context.Context, claims *session.Claims) *controller.Controller {
	if ctrl, ok := s.registry.Get(claims.SessionID()); ok {
		return ctrl
	}
	ctrl, created := s.registry.GetOrCreate(claims.SessionID(), s.restorePlan(ctx, claims))
	if created && claims.User != nil {
		if err := ctrl.CompleteAuthentication(ctx, *claims.User); err != nil {
			s.Logger.LogError(err, "Failed to restore session user", "session_id", claims.SessionID())
		}
	}
	return ctrl
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// uploadLimit bounds multipart uploads: the file limit plus form overhead
func (s *Server) uploadLimit() int64 {
	return s.extractor.MaxFileSize() + 64<<10
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
