package firebaseauth

import (
	"net/http"
	"net/url"
	"strings"
)

// Request is the strategy's view of one inbound request.  It is constructed
// at request entry, consumed within a single Authenticate invocation, and
// never persisted.
type Request struct {
	// Token is the opaque bearer identity token presented on the callback
	// leg, if any
	Token IDToken

	// State is the anti-forgery state presented on the callback leg, if any
	State string

	// Error, ErrorDescription and ErrorURI carry a provider-reported
	// authorization failure; mutually exclusive with Token
	Error            string
	ErrorDescription string
	ErrorURI         string

	// HTTP is the originating request, used to resolve a relative callback
	// URL into a fully qualified one.  Optional.
	HTTP *http.Request

	// Session is the caller's session, required when the strategy uses a
	// SessionStateStore.  Optional otherwise.
	Session Session

	// LocalUserID is the id of the already-authenticated local user, if
	// the inbound request carries an authenticated session.  The
	// embedding verify callback uses it to attach the external identity
	// to the known account instead of running a login.
	LocalUserID string
}

// ParseRequest builds a Request from the inbound http request's form values.
// FormValue prioritizes body values over query parameters, if found.
func ParseRequest(r *http.Request) *Request {
	if r == nil {
		return &Request{}
	}
	return &Request{
		Token:            IDToken(r.FormValue("token")),
		State:            r.FormValue("state"),
		Error:            r.FormValue("error"),
		ErrorDescription: r.FormValue("error_description"),
		ErrorURI:         r.FormValue("error_uri"),
		HTTP:             r,
	}
}

// originalURL reconstructs the externally visible base URL of the
// originating request.  When trustProxy is set, the X-Forwarded-Proto and
// X-Forwarded-Host headers set by a reverse proxy take precedence over what
// the server saw directly.
func originalURL(r *http.Request, trustProxy bool) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if trustProxy {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			// proxies may append a list; the first entry is the client-facing one
			scheme = strings.TrimSpace(strings.SplitN(proto, ",", 2)[0])
		}
		if fwdHost := r.Header.Get("X-Forwarded-Host"); fwdHost != "" {
			host = strings.TrimSpace(strings.SplitN(fwdHost, ",", 2)[0])
		}
	}
	return &url.URL{Scheme: scheme, Host: host}
}
