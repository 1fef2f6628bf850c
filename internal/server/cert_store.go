package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumegenius/internal/config"
	"resumegenius/internal/errors"
	"resumegenius/internal/observability"
)

// CertStore holds the active server certificate and client CA pool and
// swaps them atomically on reload
type CertStore struct {
	mu sync.RWMutex

	serverCert *tls.Certificate
	caCertPool *x509.CertPool
	notAfter   time.Time

	lastReloadTime     time.Time
	reloadCount        int64
	reloadFailureCount int64
	lastReloadError    string

	config   config.TLSConfig
	om       *observability.Manager
	logger   *errors.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// NewCertStore loads the initial certificates. It fails when they cannot be read.
func NewCertStore(cfg config.TLSConfig, om *observability.Manager, logger *errors.Logger) (*CertStore, error) {
	cs := &CertStore{config: cfg, om: om, logger: logger, done: make(chan struct{})}
	if err := cs.Reload(); err != nil {
		return nil, err
	}
	return cs, nil
}

// Reload re-reads the certificates. On failure the previous ones stay active.
func (cs *CertStore) Reload() error {
	cert, notAfter, err := cs.loadCertificatePair()
	var pool *x509.CertPool
	if err == nil {
		pool, err = cs.loadCACertPool()
	}

	ctx := context.Background()
	cs.mu.Lock()
	cs.reloadCount++
	if err != nil {
		cs.reloadFailureCount++
		cs.lastReloadError = err.Error()
		cs.mu.Unlock()

		cs.om.RecordCertReload(ctx, false)
		if cs.logger != nil {
			cs.logger.LogError(err, "Failed to reload certificates")
		}
		return err
	}
	cs.serverCert = &cert
	cs.caCertPool = pool
	cs.notAfter = notAfter
	cs.lastReloadTime = time.Now()
	cs.lastReloadError = ""
	cs.mu.Unlock()

	cs.om.RecordCertReload(ctx, true)
	cs.om.RecordCertExpiry(ctx, notAfter)
	if cs.logger != nil {
		cs.logger.Info("Certificates loaded", "server_cert_expiry", notAfter)
	}
	return nil
}

func (cs *CertStore) loadCertificatePair() (tls.Certificate, time.Time, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cs.config.CertContent != "" && cs.config.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cs.config.CertContent), []byte(cs.config.KeyContent))
	case cs.config.CertFile != "" && cs.config.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cs.config.CertFile, cs.config.KeyFile)
	default:
		return tls.Certificate{}, time.Time{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return tls.Certificate{}, time.Time{}, fmt.Errorf("failed to load server cert/key: %w", err)
	}
	if len(cert.Certificate) == 0 {
		return tls.Certificate{}, time.Time{}, fmt.Errorf("server certificate is empty")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", err)
	}
	cert.Leaf = leaf
	return cert, leaf.NotAfter, nil
}

// loadCACertPool loads the client CA, required only in mutual mode
func (cs *CertStore) loadCACertPool() (*x509.CertPool, error) {
	if cs.config.Mode != tlsModeMutual {
		return nil, nil
	}

	var caCert []byte
	switch {
	case cs.config.CAContent != "":
		caCert = []byte(cs.config.CAContent)
	case cs.config.CAFile != "":
		b, err := os.ReadFile(cs.config.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = b
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}

// GetCertificate serves the current certificate to TLS handshakes
func (cs *CertStore) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if cs.serverCert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	return cs.serverCert, nil
}

// CACertPool returns the current client CA pool
func (cs *CertStore) CACertPool() *x509.CertPool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.caCertPool
}

// CheckExpiry returns the time until the server certificate expires
func (cs *CertStore) CheckExpiry() (time.Duration, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if cs.notAfter.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(cs.notAfter), nil
}

// Files lists the certificate files on disk, empty when PEM content is used
func (cs *CertStore) Files() []string {
	var files []string
	if cs.config.CertContent == "" {
		for _, f := range []string{cs.config.CertFile, cs.config.KeyFile} {
			if f != "" {
				files = append(files, f)
			}
		}
	}
	if cs.config.Mode == tlsModeMutual && cs.config.CAContent == "" && cs.config.CAFile != "" {
		files = append(files, cs.config.CAFile)
	}
	return files
}

// Metrics reports reload counters
func (cs *CertStore) Metrics() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return map[string]any{
		"reload_count":         cs.reloadCount,
		"reload_failure_count": cs.reloadFailureCount,
		"last_reload_time":     cs.lastReloadTime,
		"last_reload_error":    cs.lastReloadError,
	}
}

// StartExpiryMonitoring refreshes the expiry gauge every interval until Stop
func (cs *CertStore) StartExpiryMonitoring(interval time.Duration) {
	if !cs.om.Enabled() {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cs.mu.RLock()
				notAfter := cs.notAfter
				cs.mu.RUnlock()
				cs.om.RecordCertExpiry(context.Background(), notAfter)
			case <-cs.done:
				return
			}
		}
	}()
}

// Stop ends expiry monitoring
func (cs *CertStore) Stop() {
	cs.stopOnce.Do(func() { close(cs.done) })
}
