package callback

import (
	"net/http"

	"github.com/forgeauth/firesso/firebaseauth"
)

// SuccessResponseFunc is used to create a http response when an
// authentication attempt verified a local user.  The function should use the
// http.ResponseWriter to send back whatever content (headers, html, JSON,
// etc) it wishes to the client that originated the flow, typically
// establishing a session for the user.
type SuccessResponseFunc func(user interface{}, info *firebaseauth.Info, w http.ResponseWriter, req *http.Request)

// FailResponseFunc is used to create a http response when an authentication
// attempt was checked and rejected (anti-forgery failure, user cancellation,
// soft rejection by the verify callback).  The info carries a human-readable
// reason suitable for the end user.
type FailResponseFunc func(info *firebaseauth.Info, statusCode int, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used to create a http response when an authentication
// attempt failed with a system error.  A provider-reported authorization
// denial can be recovered from the error with errors.As and
// *firebaseauth.AuthorizationError.
type ErrorResponseFunc func(e error, w http.ResponseWriter, req *http.Request)

// SessionFunc resolves the caller's session from the inbound request, for
// strategies using a session-bound state store.
type SessionFunc func(req *http.Request) firebaseauth.Session
