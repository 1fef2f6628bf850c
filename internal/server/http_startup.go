package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start runs the server until SIGINT or SIGTERM
func (s *Server) Start() error {
	httpServer := s.setupHTTPServer()

	tlsConfig, err := s.configureTLS()
	if err != nil {
		return err
	}
	httpServer.TLSConfig = tlsConfig

	if s.Certs != nil {
		s.Certs.StartExpiryMonitoring(time.Minute)
	}
	if err := s.startFileWatcher(); err != nil {
		return err
	}

	s.om.StartPrometheus(func(err error) {
		s.Logger.LogError(err, "Prometheus metrics endpoint failed")
	})

	s.displayServerInfo()

	return s.startWithGracefulShutdown(httpServer)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startFileWatcher hot-reloads certificates and prompt files when enabled
func (s *Server) startFileWatcher() error {
	autoReload := s.TLSConfig.AutoReload
	if !autoReload.Enabled || !autoReload.FileWatcher.Enabled {
		return nil
	}

	fw := NewFileWatcher(autoReload.FileWatcher.DebounceDelay, s.Logger)
	if s.Certs != nil {
		fw.Watch("certificates", s.Certs.Files(), func() {
			_ = s.Certs.Reload() // failures are logged and keep the old certificate
		})
	}
	fw.Watch("prompts", s.AppConfig.PromptFilePaths(), s.reloadPrompts)

	if len(fw.GetWatchedFiles()) == 0 {
		s.Logger.Debug("Auto-reload enabled but no files to watch")
		return nil
	}
	if err := fw.Start(); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	s.Watcher = fw
	return nil
}

// reloadPrompts re-reads the prompt files; a failed read keeps the current prompts
func (s *Server) reloadPrompts() {
	if err := s.AppConfig.LoadPromptFiles(); err != nil {
		s.Logger.LogError(err, "Failed to reload prompt files, keeping previous prompts")
		return
	}
	s.Logger.Info("Prompt files reloaded")
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(server *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// certificates come from TLSConfig.GetCertificate
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.Close()
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())

		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown drains connections, then stops background work
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.Logger.Info("Shutting down HTTP server...")
	err := server.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// Close stops the watcher, limiter, certificate monitor and session registry
func (s *Server) Close() {
	if s.Watcher != nil {
		if err := s.Watcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop file watcher")
		}
	}
	if s.Certs != nil {
		s.Certs.Stop()
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
	s.registry.Close()
}
