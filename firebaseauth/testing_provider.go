package firebaseauth

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
)

// TestProvider is a local TLS server which stands in for the identity
// provider's securetoken service: it answers OIDC discovery, publishes a
// JWKS, and can mint signed identity tokens for any claims a test needs.
// It can also play the authorization endpoint for redirect-leg tests.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	jwks *jose.JSONWebKeySet

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	t *testing.T
}

const testKeyID = "test-key"

// StartTestProvider creates a disposable TestProvider.  The server is
// stopped via t.Cleanup.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{t: t}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(ioutil.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Addr returns the current base URL for the test provider's running
// webserver, which also serves as its issuer value.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns an http client trusting the test provider's CA.
func (p *TestProvider) HTTPClient() *http.Client {
	certPool := x509.NewCertPool()
	certPool.AppendCertsFromPEM([]byte(p.caCert))
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: certPool},
		},
	}
}

// SigningKeys returns the test provider's pem-encoded keys used to sign
// identity tokens.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// SignIDToken mints a signed identity token with the provider as issuer and
// the given audience, merging in any additional claims.  The token is valid
// for five minutes.
func (p *TestProvider) SignIDToken(t *testing.T, audience string, subject string, additionalClaims map[string]interface{}) IDToken {
	t.Helper()
	now := time.Now()
	claims := map[string]interface{}{
		"iss": p.Addr(),
		"aud": audience,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}
	return IDToken(TestSignJWT(t, p.ecdsaPrivateKey, testKeyID, claims, additionalClaims))
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.t.Helper()

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		reply := struct {
			Issuer       string `json:"issuer"`
			AuthEndpoint string `json:"authorization_endpoint"`
			JWKSURI      string `json:"jwks_uri"`
		}{
			Issuer:       p.Addr(),
			AuthEndpoint: p.Addr() + "/auth",
			JWKSURI:      p.Addr() + "/certs",
		}

		_ = p.writeJSON(w, &reply)

	case "/auth":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		// minimal authorization endpoint: bounce straight back to the
		// redirect_uri echoing the state, so redirect-leg tests can follow
		// the full round trip
		qv := req.URL.Query()
		redirectURI := qv.Get("redirect_uri") +
			"?state=" + url.QueryEscape(qv.Get("state"))
		http.Redirect(w, req, redirectURI, http.StatusFound)

	case "/certs":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		_ = p.writeJSON(w, p.jwks)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// testJWKS converts a pem-encoded public key into JWKS data suitable for a
// verification endpoint response
func testJWKS(t *testing.T, pubKey string) *jose.JSONWebKeySet {
	t.Helper()
	require := require.New(t)

	block, _ := pem.Decode([]byte(pubKey))
	require.NotNil(block)

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(err)

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       pub,
				KeyID:     testKeyID,
				Algorithm: string(ES256),
				Use:       "sig",
			},
		},
	}
}
