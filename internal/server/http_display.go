package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayListenInfo()
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayListenInfo() {
	scheme := "http"
	if s.tlsEnabled() {
		scheme = "https"
	}
	fmt.Printf("Starting server on %s://%s:%s\n", scheme, s.Host, s.Port)
	switch s.TLSConfig.Mode {
	case tlsModeServer:
		fmt.Println("TLS mode: Server-only (no client certificates required)")
	case tlsModeMutual:
		fmt.Println("TLS mode: Mutual (client certificates required)")
	default:
		fmt.Println("TLS mode: Disabled (HTTP only)")
	}
	if s.Watcher != nil {
		fmt.Printf("Auto-reload: watching %d file(s)\n", len(s.Watcher.GetWatchedFiles()))
	}
	if addr := s.om.PrometheusAddr(); addr != "" {
		fmt.Printf("Prometheus metrics: %s%s\n", addr, s.AppConfig.Observability.Prometheus.Endpoint)
	}
	fmt.Printf("Billing provider: %s\n", s.billing.Name())
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health                 - Health check")
	fmt.Println("  GET  /stats                  - Server statistics")
	fmt.Println("  GET  /api/plans              - Plan catalog")
	fmt.Println("  POST /api/session            - Start a session")
	fmt.Println("  POST /api/auth               - Sign in")
	fmt.Println("  POST /api/submit             - Submit resume text")
	fmt.Println("  POST /api/extract            - Extract text from an upload")
	fmt.Println("  POST /api/rewrite            - Full resume rewrite")
	fmt.Println("  POST /api/navigate           - Change view")
	fmt.Println("  POST /api/plan/select        - Start a plan upgrade")
	fmt.Println("  POST /api/payment/complete   - Confirm payment (billing provider 'none')")
	fmt.Println("  POST /api/billing/webhook    - Payment provider callback")
	fmt.Println("  GET  /api/state              - Session state")
	fmt.Println("  GET  /api/report             - Download health check report")
	fmt.Println("  GET  /api/rewrite/download   - Download optimized resume")
	if s.AppConfig.Server.StaticDir != "" {
		fmt.Printf("  GET  /*                      - Web app from %s\n", s.AppConfig.Server.StaticDir)
	}
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("Operator authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /stats")
	} else {
		fmt.Println("Operator authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: /stats is publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
	fmt.Printf("Upload size limit: %d bytes\n", s.extractor.MaxFileSize())
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimiter == nil {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
		return
	}
	backend, _ := s.RateLimiter.GetStats()["backend"].(string)
	fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d, backend: %s)\n",
		s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity, backend)
	if s.RateLimit.ByAPIKey {
		fmt.Println("  - Per API key rate limiting enabled")
	}
	if s.RateLimit.ByIP {
		fmt.Println("  - Per IP address rate limiting enabled")
	}
}
