package gin

import (
	"crypto/tls"
	"fmt"

	httpserver "git.dzz.com/wisegin/transport/http"
)

// buildTLS returns nil when cfg does not ask for TLS.
func buildTLS(cfg httpserver.Config) (*tls.Config, error) {
	hasPair := len(cfg.Certificate) > 0 || len(cfg.Key) > 0
	if cfg.HTTPSServerOptions == nil && !hasPair {
		return nil, nil
	}

	conf := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.HTTPSServerOptions != nil {
		conf = cfg.HTTPSServerOptions.Clone()
	}
	if hasPair {
		cert, err := tls.X509KeyPair(cfg.Certificate, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("gin: load key pair: %w", err)
		}
		conf.Certificates = append(conf.Certificates, cert)
	}
	return conf, nil
}
