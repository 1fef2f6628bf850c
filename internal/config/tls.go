package config

import "fmt"

// pemSource is one certificate input that may come from a file or from content
type pemSource struct {
	name    string
	file    string
	content string
}

func (p pemSource) present() bool { return p.file != "" || p.content != "" }

func (p pemSource) ambiguous() bool { return p.file != "" && p.content != "" }

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	cert := pemSource{"cert", tls.CertFile, tls.CertContent}
	key := pemSource{"key", tls.KeyFile, tls.KeyContent}
	ca := pemSource{"ca", tls.CAFile, tls.CAContent}

	switch tls.Mode {
	case "disabled":
		return nil
	case "server":
		if err := requireSources(tls.Mode, cert, key); err != nil {
			return err
		}
	case "mutual":
		if err := requireSources(tls.Mode, cert, key, ca); err != nil {
			return err
		}
		switch tls.ClientAuthPolicy {
		case "", "require", "request", "verify":
		default:
			return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", tls.ClientAuthPolicy)
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}

	switch tls.MinVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}
}

// requireSources checks every source is set exactly once
func requireSources(mode string, sources ...pemSource) error {
	for _, s := range sources {
		if !s.present() {
			return fmt.Errorf("TLS %s is required for %s mode (provide %sFile or %sContent)", s.name, mode, s.name, s.name)
		}
		if s.ambiguous() {
			return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", s.name, s.name)
		}
	}
	return nil
}
