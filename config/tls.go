package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig holds TLS certificate information for network backends.
type TLSConfig struct {
	// Enabled turns TLS on. The other fields are ignored otherwise.
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile hold a client certificate. Both or neither.
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`

	// CAFile verifies the server. Empty uses the system roots.
	CAFile string `yaml:"ca_file,omitempty"`
}

func (t *TLSConfig) validate() error {
	if t == nil || !t.Enabled {
		return nil
	}
	if (t.CertFile == "") != (t.KeyFile == "") {
		return fmt.Errorf("store.tls: cert_file and key_file must be set together")
	}
	return nil
}

// ClientConfig creates a tls.Config for client connections. It returns nil
// when TLS is not enabled.
func (t *TLSConfig) ClientConfig() (*tls.Config, error) {
	if t == nil || !t.Enabled {
		return nil, nil
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if t.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if t.CAFile != "" {
		caData, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caData) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		cfg.RootCAs = caPool
	}

	return cfg, nil
}
