package firebaseauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	sdkHttp "github.com/forgeauth/firesso/sdk/http"
	"github.com/forgeauth/firesso/sdk/strutils"
)

// DefaultIssuer returns the issuer URL the provider's securetoken service
// embeds in identity tokens minted for the given project.
func DefaultIssuer(projectID string) string {
	return "https://securetoken.google.com/" + projectID
}

// Config represents the configuration for a Strategy.
type Config struct {
	// ProjectID is the provider project identifier.  Verified identity
	// tokens must carry it as their audience.
	ProjectID string

	// Issuer is a case-sensitive URL string verified identity tokens must
	// carry as their issuer.  When empty, NewConfig derives it from the
	// ProjectID via DefaultIssuer.
	Issuer string

	// AuthorizationURL is the endpoint the initiation leg redirects the
	// user's browser to.
	AuthorizationURL string

	// CallbackURL is the URL the authorization endpoint should send the
	// user back to.  It may be relative, in which case it is resolved
	// against the originating request's base URL per authentication
	// attempt.
	CallbackURL string
}

// NewConfig composes a new config for a Strategy.
// Supported options: WithCallbackURL
func NewConfig(projectID string, authorizationURL string, opt ...Option) (*Config, error) {
	const op = "firebaseauth.NewConfig"
	opts := getStrategyOpts(opt...)
	c := &Config{
		ProjectID:        projectID,
		Issuer:           DefaultIssuer(projectID),
		AuthorizationURL: authorizationURL,
		CallbackURL:      opts.withCallbackURL,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid strategy config: %w", op, err)
	}
	return c, nil
}

// Validate the strategy configuration.  Among other validations, it verifies
// the authorization URL parses as an absolute http(s) URL, but it doesn't
// verify the endpoint is reachable.
func (c *Config) Validate() error {
	const op = "firebaseauth.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: strategy config is nil: %w", op, ErrNilParameter)
	}
	if c.ProjectID == "" {
		return fmt.Errorf("%s: project id is empty: %w", op, ErrInvalidParameter)
	}
	if c.Issuer == "" {
		return fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	if c.AuthorizationURL == "" {
		return fmt.Errorf("%s: authorization URL is empty: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(c.AuthorizationURL)
	if err != nil {
		return fmt.Errorf("%s: authorization URL %s is invalid: %w", op, c.AuthorizationURL, err)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
		return fmt.Errorf("%s: authorization URL %s scheme is not http or https: %w", op, c.AuthorizationURL, ErrInvalidParameter)
	}
	return nil
}

// sessionKey derives the default session key for anti-forgery state from the
// authorization URL's hostname.  An unparseable URL (impossible after
// Validate) falls back to the raw URL string so two strategies can't end up
// sharing a key.
func (c *Config) sessionKey() string {
	u, err := url.Parse(c.AuthorizationURL)
	if err != nil {
		return "firebaseauth:" + c.AuthorizationURL
	}
	return "firebaseauth:" + u.Hostname()
}

// NewHTTPClient is a helper function that creates a new http client for
// requests to the identity provider, using the optional CA certificate PEM
// if provided.
func NewHTTPClient(caPEM string) (*http.Client, error) {
	const op = "firebaseauth.NewHTTPClient"
	client, err := sdkHttp.NewClient(caPEM)
	if err != nil {
		if err == sdkHttp.ErrInvalidCertificatePem {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key
// used by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so
// the returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}
