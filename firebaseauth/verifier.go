package firebaseauth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
)

// Alg represents asymmetric signing algorithms
type Alg string

const (
	RS256 Alg = "RS256"
	RS384 Alg = "RS384"
	RS512 Alg = "RS512"
	ES256 Alg = "ES256"
	ES384 Alg = "ES384"
	ES512 Alg = "ES512"
	PS256 Alg = "PS256"
	PS384 Alg = "PS384"
	PS512 Alg = "PS512"
)

var supportedAlgorithms = map[Alg]bool{
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
}

// IdentityVerifier verifies an opaque identity token and returns its decoded
// claims set.  Implementations must be concurrently safe and are expected to
// fail fast on network or cryptographic errors; the Strategy propagates such
// failures without retry.
type IdentityVerifier interface {
	Verify(ctx context.Context, token IDToken) (*DecodedIdentity, error)
}

// ProviderVerifier is an IdentityVerifier which verifies identity token
// signatures against the issuer's published key set, discovered via the
// issuer's OIDC discovery document.
type ProviderVerifier struct {
	issuer      string
	projectID   string
	signingAlgs []Alg
	provider    *oidc.Provider
	logger      hclog.Logger

	mu sync.Mutex

	// backgroundCtx is the context used by the verifier for background
	// activities like refreshing the issuer's key set
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

var _ IdentityVerifier = (*ProviderVerifier)(nil)

// NewProviderVerifier creates and initializes a ProviderVerifier for the
// given project.  Initializing the verifier includes making an http request
// to the issuer for discovery.  The issuer defaults to
// DefaultIssuer(projectID).
//
// Supported options: WithIssuer, WithProviderCA, WithHTTPClient,
// WithSupportedSigningAlgs, WithLogger
//
// See ProviderVerifier.Done() which must be called to release verifier
// resources.
func NewProviderVerifier(ctx context.Context, projectID string, opt ...Option) (*ProviderVerifier, error) {
	const op = "firebaseauth.NewProviderVerifier"
	if projectID == "" {
		return nil, fmt.Errorf("%s: project id is empty: %w", op, ErrInvalidParameter)
	}
	opts := getVerifierOpts(opt...)
	for _, a := range opts.withSigningAlgs {
		if !supportedAlgorithms[a] {
			return nil, fmt.Errorf("%s: unsupported algorithm %s: %w", op, a, ErrInvalidParameter)
		}
	}

	issuer := opts.withIssuer
	if issuer == "" {
		issuer = DefaultIssuer(projectID)
	}

	client := opts.withHTTPClient
	if client == nil {
		var err error
		client, err = NewHTTPClient(opts.withProviderCA)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	// initializing the verifier with its background ctx/cancel allows
	// v.Done() to release resources when returning errors from this function
	v := &ProviderVerifier{
		issuer:              issuer,
		projectID:           projectID,
		signingAlgs:         opts.withSigningAlgs,
		logger:              opts.withLogger,
		backgroundCtx:       bgCtx,
		backgroundCtxCancel: cancel,
	}

	provider, err := oidc.NewProvider(HTTPClientContext(v.backgroundCtx, client), issuer) // makes http req to issuer for discovery
	if err != nil {
		v.Done() // release the backgroundCtxCancel resources
		return nil, fmt.Errorf("%s: unable to create provider for issuer %s: %w", op, issuer, err)
	}
	v.provider = provider

	return v, nil
}

// Done with the verifier's background resources and must be called for every
// ProviderVerifier created
func (v *ProviderVerifier) Done() {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backgroundCtxCancel != nil {
		v.backgroundCtxCancel()
		v.backgroundCtxCancel = nil
	}
}

// Verify checks the inbound identity token's signature against the issuer's
// key set and that the token hasn't expired, then returns its decoded claims
// set.  The audience check against the project id belongs to the Strategy's
// validation step and is also enforced here through the underlying
// verifier's client id check.
func (v *ProviderVerifier) Verify(ctx context.Context, token IDToken) (*DecodedIdentity, error) {
	const op = "firebaseauth.(ProviderVerifier).Verify"
	if token == "" {
		return nil, fmt.Errorf("%s: identity token is empty: %w", op, ErrInvalidParameter)
	}
	algs := make([]string, 0, len(v.signingAlgs))
	for _, a := range v.signingAlgs {
		algs = append(algs, string(a))
	}
	oidcConfig := &oidc.Config{
		ClientID:             v.projectID,
		SupportedSigningAlgs: algs,
	}
	verifier := v.provider.Verifier(oidcConfig)

	t, err := verifier.Verify(ctx, string(token))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid identity token: %w", op, err)
	}

	var identity DecodedIdentity
	if err := t.Claims(&identity); err != nil {
		return nil, fmt.Errorf("%s: unable to decode identity token claims: %w", op, err)
	}
	// the aud claim may be a list; rely on the verified token's view of it
	identity.Issuer = t.Issuer
	identity.Subject = t.Subject
	identity.Expiry = t.Expiry
	if len(t.Audience) > 0 {
		identity.Audience = t.Audience[0]
	}
	return &identity, nil
}

// verifierOptions is the set of available options for verifier functions
type verifierOptions struct {
	withIssuer      string
	withProviderCA  string
	withHTTPClient  *http.Client
	withSigningAlgs []Alg
	withLogger      hclog.Logger
}

// verifierDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func verifierDefaults() verifierOptions {
	return verifierOptions{
		withSigningAlgs: []Alg{RS256},
		withLogger:      hclog.NewNullLogger(),
	}
}

// getVerifierOpts gets the verifier defaults and applies the opt overrides
// passed in.
func getVerifierOpts(opt ...Option) verifierOptions {
	opts := verifierDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithIssuer provides an optional issuer URL override for a
// ProviderVerifier, used when tokens are minted by a non-default issuer
// (test providers, emulators).  Valid for: ProviderVerifier
func WithIssuer(issuer string) Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok {
			v.withIssuer = issuer
		}
	}
}
