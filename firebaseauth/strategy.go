package firebaseauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"
)

// OutcomeKind enumerates the terminal states of one authentication attempt
// which are not errors.
type OutcomeKind int

const (
	// OutcomeRedirect means the attempt produced a redirect to the
	// authorization endpoint (the initiation leg)
	OutcomeRedirect OutcomeKind = iota + 1

	// OutcomeSuccess means the attempt verified the identity and produced
	// a local user
	OutcomeSuccess

	// OutcomeFail means the attempt was checked and rejected; the caller
	// should present Info to the end user rather than treat it as a
	// system fault
	OutcomeFail
)

// Info carries supplemental detail about a Success or Fail outcome back to
// the session host.
type Info struct {
	// Message is a human-readable reason, set on Fail outcomes
	Message string

	// State is the verified anti-forgery state, set on Success outcomes
	// when state was used
	State string

	// Params are the parameters recorded with the token relay, including
	// anything the TokenParams hook contributed; set on Success outcomes
	Params url.Values
}

// Outcome is the terminal state of one Authenticate invocation which did not
// error.  Exactly one of the Kind-dependent field sets is meaningful.
type Outcome struct {
	Kind OutcomeKind

	// Location is the authorization endpoint redirect target, set when
	// Kind is OutcomeRedirect
	Location string

	// User is the local user produced by the verify callback, set when
	// Kind is OutcomeSuccess
	User interface{}

	// Info is set on Success and Fail outcomes
	Info *Info

	// StatusCode is an HTTP-style status for Fail outcomes
	StatusCode int
}

// VerifyFunc is the verification callback supplied by the embedding
// application.  It receives the relayed identity token and its verified
// claims set and returns one of: (user, info, nil) success, (nil, info, nil)
// soft rejection, or an error.
type VerifyFunc func(ctx context.Context, token IDToken, identity *DecodedIdentity) (user interface{}, info *Info, err error)

// VerifyRequestFunc is the pass-request form of VerifyFunc, used when the
// strategy is constructed with WithPassRequest.
type VerifyRequestFunc func(ctx context.Context, req *Request, token IDToken, identity *DecodedIdentity) (user interface{}, info *Info, err error)

// ParamsFunc returns additional query parameters to merge into the
// authorization request or the token relay.  The default hooks return
// nothing extra.
type ParamsFunc func(req *Request) url.Values

// LoginGuardFunc reports whether starting a login via this provider is
// currently permitted.
type LoginGuardFunc func(ctx context.Context) (bool, error)

// Strategy authenticates requests by relaying a bearer identity token issued
// by the external identity provider.  One strategy serves many concurrent
// authentication attempts; it holds no per-attempt state.
type Strategy struct {
	cfg       *Config
	verifier  IdentityVerifier
	verify    VerifyFunc
	verifyReq VerifyRequestFunc

	store       StateStore
	sessionKey  string
	callbackURL string
	trustProxy  bool
	loginGuard  LoginGuardFunc
	logger      hclog.Logger

	// AuthorizationParams optionally returns extra parameters for the
	// authorization request built on the initiation leg
	AuthorizationParams ParamsFunc

	// TokenParams optionally returns extra parameters recorded with the
	// token relay on the callback leg
	TokenParams ParamsFunc
}

// New creates a Strategy.  The verify callback is required unless the
// strategy is constructed in pass-request mode via WithPassRequest, in which
// case verify must be nil.
//
// Supported options: WithStateStore, WithSessionKey, WithPassRequest,
// WithTrustProxy, WithCallbackURL, WithLoginGuard, WithLogger
func New(cfg *Config, verifier IdentityVerifier, verify VerifyFunc, opt ...Option) (*Strategy, error) {
	const op = "firebaseauth.New"
	if cfg == nil {
		return nil, fmt.Errorf("%s: strategy config is nil: %w", op, ErrNilParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: strategy config is invalid: %w", op, err)
	}
	if verifier == nil {
		return nil, fmt.Errorf("%s: identity verifier is nil: %w", op, ErrNilParameter)
	}
	opts := getStrategyOpts(opt...)
	if verify == nil && opts.withVerifyRequest == nil {
		return nil, fmt.Errorf("%s: verify callback is nil: %w", op, ErrNilParameter)
	}
	if verify != nil && opts.withVerifyRequest != nil {
		return nil, fmt.Errorf("%s: both verify callback forms provided: %w", op, ErrInvalidParameter)
	}

	sessionKey := opts.withSessionKey
	if sessionKey == "" {
		sessionKey = cfg.sessionKey()
	}
	callbackURL := cfg.CallbackURL
	if opts.withCallbackURL != "" {
		callbackURL = opts.withCallbackURL
	}

	return &Strategy{
		cfg:         cfg,
		verifier:    verifier,
		verify:      verify,
		verifyReq:   opts.withVerifyRequest,
		store:       opts.withStateStore,
		sessionKey:  sessionKey,
		callbackURL: callbackURL,
		trustProxy:  opts.withTrustProxy,
		loginGuard:  opts.withLoginGuard,
		logger:      opts.withLogger,
	}, nil
}

// Authenticate runs one authentication attempt through the strategy's state
// machine and returns its terminal outcome: a redirect to the authorization
// endpoint, a verified user, or a checked rejection.  System faults are the
// error return.
//
// Supported options: WithState, WithCallbackURL
func (s *Strategy) Authenticate(ctx context.Context, req *Request, opt ...Option) (*Outcome, error) {
	const op = "firebaseauth.(Strategy).Authenticate"
	if req == nil {
		return nil, fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	opts := getAuthOpts(opt...)

	// provider-reported failure leg
	if req.Error != "" {
		if req.Error == "access_denied" {
			return &Outcome{
				Kind:       OutcomeFail,
				Info:       &Info{Message: req.ErrorDescription},
				StatusCode: http.StatusUnauthorized,
			}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, &AuthorizationError{
			Code:        req.Error,
			Description: req.ErrorDescription,
			URI:         req.ErrorURI,
		})
	}

	callbackURL, err := s.resolveCallbackURL(req, opts.withCallbackURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	meta := Meta{
		AuthorizationURL: s.cfg.AuthorizationURL,
		SessionKey:       s.sessionKey,
	}

	if req.Token != "" {
		return s.callbackLeg(ctx, req, callbackURL, meta)
	}
	return s.initiationLeg(ctx, req, callbackURL, meta, opts.withState)
}

// callbackLeg processes a request carrying an inbound identity token:
// anti-forgery check, token verification, issuer/audience validation, then
// delegation to the embedding verify callback.  The steps are strictly
// sequenced; token verification must not run before the state is confirmed.
func (s *Strategy) callbackLeg(ctx context.Context, req *Request, callbackURL string, meta Meta) (*Outcome, error) {
	const op = "firebaseauth.(Strategy).callbackLeg"

	ok, reason, err := s.store.Verify(ctx, req, req.State, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to check request state: %w", op, err)
	}
	if !ok {
		return &Outcome{
			Kind:       OutcomeFail,
			Info:       &Info{Message: reason},
			StatusCode: http.StatusForbidden,
		}, nil
	}

	relayParams := url.Values{}
	if s.TokenParams != nil {
		// the hook may return nil for "nothing extra"
		for k, vs := range s.TokenParams(req) {
			for _, v := range vs {
				relayParams.Add(k, v)
			}
		}
	}
	relayParams.Set("grant_type", "authorization_token")
	if callbackURL != "" {
		relayParams.Set("redirect_uri", callbackURL)
	}

	identity, err := s.verifier.Verify(ctx, req.Token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, &TokenError{Msg: "failed to verify identity token", Err: err})
	}

	// reject on either mismatch; a token for the right project from the
	// wrong issuer is as bad as the reverse
	if identity.Issuer != s.cfg.Issuer || identity.Audience != s.cfg.ProjectID {
		s.logger.Warn("identity token issuer or audience mismatch",
			"issuer", identity.Issuer,
			"audience", identity.Audience,
			"want-issuer", s.cfg.Issuer,
			"want-audience", s.cfg.ProjectID,
		)
		return nil, fmt.Errorf("%s: %w", op, ErrIdentityMismatch)
	}

	user, info, err := s.callVerify(ctx, req, req.Token, identity)
	if err != nil {
		return nil, fmt.Errorf("%s: verify callback failed: %w", op, err)
	}
	if user == nil {
		if info == nil {
			info = &Info{}
		}
		return &Outcome{
			Kind:       OutcomeFail,
			Info:       info,
			StatusCode: http.StatusUnauthorized,
		}, nil
	}
	if info == nil {
		info = &Info{}
	}
	if req.State != "" {
		info.State = req.State
	}
	info.Params = relayParams
	return &Outcome{Kind: OutcomeSuccess, User: user, Info: info}, nil
}

// initiationLeg builds the redirect to the authorization endpoint, storing
// fresh anti-forgery state unless the caller supplied an explicit one.
func (s *Strategy) initiationLeg(ctx context.Context, req *Request, callbackURL string, meta Meta, explicitState string) (*Outcome, error) {
	const op = "firebaseauth.(Strategy).initiationLeg"

	if s.loginGuard != nil {
		allowed, err := s.loginGuard(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to check login policy: %w", op, err)
		}
		if !allowed {
			return &Outcome{
				Kind:       OutcomeFail,
				Info:       &Info{Message: "Login with this provider is disabled."},
				StatusCode: http.StatusForbidden,
			}, nil
		}
	}

	params := url.Values{}
	if s.AuthorizationParams != nil {
		for k, vs := range s.AuthorizationParams(req) {
			for _, v := range vs {
				params.Add(k, v)
			}
		}
	}
	params.Set("response_type", "token")
	if callbackURL != "" {
		params.Set("redirect_uri", callbackURL)
	}

	state := explicitState
	if state == "" {
		var err error
		state, err = s.store.Store(ctx, req, meta)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to store request state: %w", op, err)
		}
	}
	if state != "" {
		params.Set("state", state)
	}

	return &Outcome{
		Kind:     OutcomeRedirect,
		Location: s.cfg.AuthorizationURL + "?" + params.Encode(),
	}, nil
}

// callVerify invokes the embedding verification callback with a fixed
// calling convention depending on how the strategy was constructed.  A panic
// raised synchronously inside the callback is recovered and converted to a
// system error; it must never crash the host.
func (s *Strategy) callVerify(ctx context.Context, req *Request, token IDToken, identity *DecodedIdentity) (user interface{}, info *Info, err error) {
	defer func() {
		if r := recover(); r != nil {
			user, info = nil, nil
			err = fmt.Errorf("verify callback panic: %v", r)
		}
	}()
	if s.verifyReq != nil {
		return s.verifyReq(ctx, req, token, identity)
	}
	return s.verify(ctx, token, identity)
}

// resolveCallbackURL returns a fully qualified callback URL.  A relative
// configured URL is resolved against the originating request's effective
// base URL, since the authorization endpoint needs an absolute redirect
// target.
func (s *Strategy) resolveCallbackURL(req *Request, override string) (string, error) {
	callbackURL := s.callbackURL
	if override != "" {
		callbackURL = override
	}
	if callbackURL == "" {
		return "", nil
	}
	parsed, err := url.Parse(callbackURL)
	if err != nil {
		return "", fmt.Errorf("callback URL %s is invalid: %w", callbackURL, err)
	}
	if parsed.Scheme != "" {
		return callbackURL, nil
	}
	if req.HTTP == nil {
		return "", fmt.Errorf("callback URL %s is relative and no originating request is available: %w", callbackURL, ErrInvalidParameter)
	}
	return originalURL(req.HTTP, s.trustProxy).ResolveReference(parsed).String(), nil
}

// strategyOptions is the set of available options for Strategy functions
type strategyOptions struct {
	withStateStore    StateStore
	withSessionKey    string
	withCallbackURL   string
	withVerifyRequest VerifyRequestFunc
	withTrustProxy    bool
	withLoginGuard    LoginGuardFunc
	withLogger        hclog.Logger
}

// strategyDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func strategyDefaults() strategyOptions {
	return strategyOptions{
		withStateStore: &NullStateStore{},
		withLogger:     hclog.NewNullLogger(),
	}
}

// getStrategyOpts gets the strategy defaults and applies the opt overrides
// passed in.
func getStrategyOpts(opt ...Option) strategyOptions {
	opts := strategyDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// authOptions is the set of available options for a single Authenticate call
type authOptions struct {
	withState       string
	withCallbackURL string
}

func getAuthOpts(opt ...Option) authOptions {
	opts := authOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}
