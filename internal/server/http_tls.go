package server

import (
	"crypto/tls"
	"fmt"
)

const (
	tlsModeDisabled = "disabled"
	tlsModeServer   = "server"
	tlsModeMutual   = "mutual"
)

// tlsEnabled reports whether the server listens with TLS
func (s *Server) tlsEnabled() bool {
	return s.TLSConfig.Mode == tlsModeServer || s.TLSConfig.Mode == tlsModeMutual
}

// configureTLS loads certificates and returns the listener TLS config,
// or nil when TLS is disabled
func (s *Server) configureTLS() (*tls.Config, error) {
	switch s.TLSConfig.Mode {
	case "", tlsModeDisabled:
		return nil, nil
	case tlsModeServer, tlsModeMutual:
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	certs, err := NewCertStore(s.TLSConfig, s.om, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up TLS: %w", err)
	}
	s.Certs = certs
	return s.buildTLSConfig(certs), nil
}

// buildTLSConfig creates the TLS configuration backed by certs
func (s *Server) buildTLSConfig(certs *CertStore) *tls.Config {
	tlsConfig := &tls.Config{
		MinVersion:     minTLSVersion(s.TLSConfig.MinVersion),
		CipherSuites:   cipherSuites(s.TLSConfig.CipherSuites),
		GetCertificate: certs.GetCertificate,
	}

	if s.TLSConfig.Mode != tlsModeMutual {
		tlsConfig.ClientAuth = tls.NoClientCert
		return tlsConfig
	}

	tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
	tlsConfig.ClientCAs = certs.CACertPool()
	// pick up a reloaded CA pool on every handshake
	tlsConfig.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cfg := tlsConfig.Clone()
		cfg.GetConfigForClient = nil
		cfg.ClientCAs = certs.CACertPool()
		return cfg, nil
	}
	return tlsConfig
}

func minTLSVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func cipherSuites(names []string) []uint16 {
	if len(names) == 0 {
		return nil
	}
	out := make([]uint16, 0, len(names))
	for _, name := range names {
		if id := getCipherSuiteID(name); id != 0 {
			out = append(out, id)
		}
	}
	return out
}

// clientAuthPolicy maps the configured policy; mutual mode defaults to require
func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// getCipherSuiteID returns the cipher suite ID for a given name
func getCipherSuiteID(name string) uint16 {
	for _, cs := range tls.CipherSuites() {
		if cs.Name == name {
			return cs.ID
		}
	}
	return 0
}
