package server

import (
	"context"
	"time"

	"resumegenius/internal/ai"
	"resumegenius/internal/billing"
	"resumegenius/internal/config"
	"resumegenius/internal/controller"
	"resumegenius/internal/errors"
	"resumegenius/internal/extract"
	"resumegenius/internal/formatters"
	"resumegenius/internal/observability"
	"resumegenius/internal/plan"
	"resumegenius/internal/session"
	"resumegenius/internal/store"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// modelReporter is implemented by AI services that can describe their model
type modelReporter interface {
	Operation() string
	GetModelInfo(ctx context.Context) *ai.ModelInfo
	Stats() map[string]any
}

// Deps are the collaborators a Server drives. Store and Observability may be nil.
type Deps struct {
	Analyzer      controller.AnalysisClient
	Rewriter      controller.RewriteClient
	Store         *store.Store
	Sessions      *session.Manager
	Billing       billing.Provider
	Observability *observability.Manager
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig
	Certs     *CertStore
	Watcher   *FileWatcher

	// Operator keys for /stats
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter Limiter

	Logger *errors.Logger

	analyzer   controller.AnalysisClient
	rewriter   controller.RewriteClient
	store      *store.Store
	sessions   *session.Manager
	billing    billing.Provider
	om         *observability.Manager
	registry   *Registry
	extractor  *extract.Extractor
	formatters *formatters.FormatterRegistry
	validate   *validator.Validate
	now        func() time.Time
}

// NewServer wires a Server from the application config
func NewServer(appCfg *config.Config, version string, deps Deps, logger *errors.Logger) (*Server, error) {
	if deps.Analyzer == nil || deps.Rewriter == nil || deps.Sessions == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "server requires AI clients and a session manager", nil)
	}
	if deps.Billing == nil {
		deps.Billing = billing.NoopProvider{}
	}

	srvCfg := appCfg.Server
	apiKeyMap := make(map[string]bool)
	for _, key := range srvCfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	s := &Server{
		Host:           srvCfg.Host,
		Port:           srvCfg.Port,
		Version:        version,
		AppConfig:      appCfg,
		TLSConfig:      srvCfg.TLS,
		APIKeys:        apiKeyMap,
		ReadTimeout:    srvCfg.ReadTimeout,
		WriteTimeout:   srvCfg.WriteTimeout,
		IdleTimeout:    srvCfg.IdleTimeout,
		MaxRequestSize: srvCfg.MaxRequestSize,
		RateLimit:      &srvCfg.RateLimit,
		Logger:         logger,
		analyzer:       deps.Analyzer,
		rewriter:       deps.Rewriter,
		store:          deps.Store,
		sessions:       deps.Sessions,
		billing:        deps.Billing,
		om:             deps.Observability,
		extractor:      extract.New(appCfg.Extract.MaxFileSize),
		formatters:     formatters.NewFormatterRegistry(),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		now:            time.Now,
	}

	s.registry = NewRegistry(appCfg.Session.IdleTimeout, s.newController, logger)
	s.RateLimiter = s.newLimiter()
	return s, nil
}

// newController builds the controller for a fresh session on its
// restored plan
func (s *Server) newController(initial plan.Plan) *controller.Controller {
	opts := controller.Options{Logger: s.Logger, InitialPlan: initial}
	// a nil *store.Store must not become a non-nil interface
	if s.store != nil {
		opts.Store = s.store
	}
	return controller.New(s.analyzer, s.rewriter, opts)
}

// newLimiter picks the distributed limiter when Redis storage backs it
func (s *Server) newLimiter() Limiter {
	rl := s.RateLimit
	if rl == nil || !rl.Enabled {
		return nil
	}
	local := NewRateLimiter(rl.RequestsPerMin, rl.BurstCapacity, s.Logger)
	if !rl.Distributed || s.store == nil {
		return local
	}
	rb, ok := s.store.Backend().(*store.RedisBackend)
	if !ok {
		s.Logger.Warn("Distributed rate limiting needs redis storage, using in-process limiter",
			"storage_backend", s.AppConfig.Storage.Backend)
		return local
	}
	return NewDistributedLimiter(rb.Client(), rl.RequestsPerMin, rl.BurstCapacity, rl.FailOpen, local, s.Logger)
}

// Registry exposes the per-session controllers
func (s *Server) Registry() *Registry {
	return s.registry
}
