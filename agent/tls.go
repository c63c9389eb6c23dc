package agent

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"go.rmagent.dev/core/errors"
)

// tlsConfig builds the transport security settings for an "amqps"
// endpoint from cfg, mirroring the original SSL domain construction:
// trust file, client certificate/key, and an optional hostname
// verification skip.
func tlsConfig(cfg *Config) (*tls.Config, error) {
	if cfg.CACert == "" && cfg.ClientCert == "" {
		return nil, nil
	}

	conf := &tls.Config{InsecureSkipVerify: !cfg.HostValidation} //nolint:gosec

	if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read CA certificate")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("failed to parse CA certificate")
		}
		conf.RootCAs = pool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load client certificate/key")
		}
		conf.Certificates = []tls.Certificate{cert}
	}
	return conf, nil
}
