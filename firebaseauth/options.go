package firebaseauth

import (
	"net/http"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(opts)
	}
}

// WithLogger provides an optional hclog.Logger for: Strategy,
// ProviderVerifier
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *strategyOptions:
			v.withLogger = l
		case *verifierOptions:
			v.withLogger = l
		}
	}
}

// WithProviderCA provides an optional CA cert PEM used when sending requests
// to the identity provider.  Valid for: ProviderVerifier
func WithProviderCA(caPEM string) Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok {
			v.withProviderCA = caPEM
		}
	}
}

// WithHTTPClient provides an optional http client used when sending requests
// to the identity provider, overriding the CA-based default.  Valid for:
// ProviderVerifier
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok {
			v.withHTTPClient = c
		}
	}
}

// WithSupportedSigningAlgs provides an optional list of signing algorithms
// accepted for identity tokens.  When not provided, RS256 is used, which is
// what the provider's securetoken service signs with.  Valid for:
// ProviderVerifier
func WithSupportedSigningAlgs(algs ...Alg) Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok {
			v.withSigningAlgs = algs
		}
	}
}

// WithStateStore provides an optional StateStore for a Strategy, overriding
// the default NullStateStore.  Valid for: Strategy
func WithStateStore(s StateStore) Option {
	return func(o interface{}) {
		if v, ok := o.(*strategyOptions); ok {
			v.withStateStore = s
		}
	}
}

// WithSessionKey provides an optional session key under which a
// SessionStateStore keeps its anti-forgery state, overriding the default key
// derived from the authorization URL's hostname.  Valid for: Strategy
func WithSessionKey(key string) Option {
	return func(o interface{}) {
		if v, ok := o.(*strategyOptions); ok {
			v.withSessionKey = key
		}
	}
}

// WithPassRequest makes the Strategy invoke its VerifyRequestFunc, which
// receives the originating request along with the token and decoded
// identity.  Valid for: Strategy
func WithPassRequest(fn VerifyRequestFunc) Option {
	return func(o interface{}) {
		if v, ok := o.(*strategyOptions); ok {
			v.withVerifyRequest = fn
		}
	}
}

// WithTrustProxy makes callback URL resolution honor the
// X-Forwarded-Proto/X-Forwarded-Host headers when determining the externally
// visible base URL of the originating request.  Valid for: Strategy
func WithTrustProxy() Option {
	return func(o interface{}) {
		if v, ok := o.(*strategyOptions); ok {
			v.withTrustProxy = true
		}
	}
}

// WithLoginGuard provides an optional policy check consulted on every
// initiation leg; returning false refuses to start a login.  It is invoked
// fresh per request since an administrator may flip the policy at any time.
// Valid for: Strategy
func WithLoginGuard(fn LoginGuardFunc) Option {
	return func(o interface{}) {
		if v, ok := o.(*strategyOptions); ok {
			v.withLoginGuard = fn
		}
	}
}

// WithState provides an explicit anti-forgery state value for a single
// Authenticate call, skipping the StateStore on the initiation leg.  Valid
// for: Strategy.Authenticate
func WithState(state string) Option {
	return func(o interface{}) {
		if v, ok := o.(*authOptions); ok {
			v.withState = state
		}
	}
}

// WithCallbackURL provides a callback URL override.  Valid for: Strategy,
// Strategy.Authenticate
func WithCallbackURL(u string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *strategyOptions:
			v.withCallbackURL = u
		case *authOptions:
			v.withCallbackURL = u
		}
	}
}
