package firebaseauth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// TestSession is an in-memory Session for tests.  It is concurrently safe.
type TestSession struct {
	mu     sync.Mutex
	values map[string]string
}

var _ Session = (*TestSession)(nil)

// NewTestSession creates an empty TestSession.
func NewTestSession() *TestSession {
	return &TestSession{values: map[string]string{}}
}

// Get implements Session.
func (s *TestSession) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements Session.
func (s *TestSession) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete implements Session.
func (s *TestSession) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// TestGenerateKeys will generate a test ECDSA P-256 pub/priv key pair
func TestGenerateKeys(t *testing.T) (pub, priv string) {
	t.Helper()
	require := require.New(t)
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)

	{
		derBytes, err := x509.MarshalECPrivateKey(privateKey)
		require.NoError(err)

		pemBlock := &pem.Block{
			Type:  "EC PRIVATE KEY",
			Bytes: derBytes,
		}
		priv = string(pem.EncodeToMemory(pemBlock))
	}
	{
		derBytes, err := x509.MarshalPKIXPublicKey(privateKey.Public())
		require.NoError(err)

		pemBlock := &pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: derBytes,
		}
		pub = string(pem.EncodeToMemory(pemBlock))
	}

	return pub, priv
}

// TestSignJWT will bundle the provided claims into a test signed JWT. The
// provided key must be ECDSA.
func TestSignJWT(t *testing.T, ecdsaPrivKeyPEM string, keyID string, claims interface{}, privateClaims interface{}) string {
	t.Helper()
	require := require.New(t)
	var key *ecdsa.PrivateKey
	block, _ := pem.Decode([]byte(ecdsaPrivKeyPEM))
	if block != nil {
		var err error
		key, err = x509.ParseECPrivateKey(block.Bytes)
		require.NoError(err)
	}

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: &jose.JSONWebKey{Key: key, KeyID: keyID}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(err)

	builder := jwt.Signed(sig).Claims(claims)
	if privateClaims != nil {
		builder = builder.Claims(privateClaims)
	}
	raw, err := builder.CompactSerialize()
	require.NoError(err)

	return raw
}
