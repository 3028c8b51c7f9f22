package http

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
)

var ErrInvalidCertificatePem = errors.New("invalid certificate PEM")

// NewClient creates a new http client which will use the optional CA
// certificate PEM if provided, otherwise it will use the installed system CA
// chain.
func NewClient(caPEM string) (*http.Client, error) {
	tr := cleanhttp.DefaultPooledTransport()

	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, ErrInvalidCertificatePem
		}

		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}

	return &http.Client{
		Transport: tr,
	}, nil
}
