package natsutil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrMTLSRequired is returned when mTLS is requested without certificates.
	ErrMTLSRequired = errors.New("mtls security required")
	// ErrCAParsingFailed is returned when CA certificate cannot be parsed
	ErrCAParsingFailed = errors.New("failed to parse CA certificate")
)

// TLSConfig names the client certificate material for NATS mTLS. Relative
// paths are resolved against CertDir.
type TLSConfig struct {
	CertDir    string `json:"cert_dir,omitempty" yaml:"cert_dir,omitempty"`
	CAFile     string `json:"ca_file" yaml:"ca_file"`
	CertFile   string `json:"cert_file" yaml:"cert_file"`
	KeyFile    string `json:"key_file" yaml:"key_file"`
	ServerName string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
}

func (c *TLSConfig) normalize() {
	if c.CertDir == "" {
		return
	}

	for _, p := range []*string{&c.CAFile, &c.CertFile, &c.KeyFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.CertDir, *p)
		}
	}
}

// ClientTLS builds a tls.Config for connecting to NATS using mTLS.
func ClientTLS(sec *TLSConfig) (*tls.Config, error) {
	if sec == nil || sec.CertFile == "" || sec.KeyFile == "" || sec.CAFile == "" {
		return nil, ErrMTLSRequired
	}

	sec.normalize()

	cert, err := tls.LoadX509KeyPair(sec.CertFile, sec.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caCert, err := os.ReadFile(sec.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, ErrCAParsingFailed
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		ServerName:   sec.ServerName,
		MinVersion:   tls.VersionTLS13,
	}, nil
}
