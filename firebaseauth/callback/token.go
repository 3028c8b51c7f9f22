package callback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/forgeauth/firesso/firebaseauth"
)

// Token creates a token-relay flow handler which serves both legs of the
// login: requests without a token are answered with a redirect to the
// authorization endpoint, and callback requests carrying a token are
// verified and dispatched to the response functions.
//
// The SuccessResponseFunc is used to create a response when an attempt
// verifies a user.  The FailResponseFunc is used when an attempt is checked
// and rejected.  The ErrorResponseFunc is used when an attempt fails with a
// system error.  The optional SessionFunc resolves the caller's session for
// strategies using a session-bound state store.
func Token(ctx context.Context, s *firebaseauth.Strategy, sessionFn SessionFunc, sFn SuccessResponseFunc, fFn FailResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.Token"
	if s == nil {
		return nil, fmt.Errorf("%s: strategy is nil: %w", op, firebaseauth.ErrNilParameter)
	}
	if sFn == nil {
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, firebaseauth.ErrNilParameter)
	}
	if fFn == nil {
		return nil, fmt.Errorf("%s: fail response func is nil: %w", op, firebaseauth.ErrNilParameter)
	}
	if eFn == nil {
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, firebaseauth.ErrNilParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		r := firebaseauth.ParseRequest(req)
		if sessionFn != nil {
			r.Session = sessionFn(req)
		}

		outcome, err := s.Authenticate(ctx, r)
		if err != nil {
			eFn(err, w, req)
			return
		}
		switch outcome.Kind {
		case firebaseauth.OutcomeRedirect:
			http.Redirect(w, req, outcome.Location, http.StatusFound)
		case firebaseauth.OutcomeSuccess:
			sFn(outcome.User, outcome.Info, w, req)
		case firebaseauth.OutcomeFail:
			fFn(outcome.Info, outcome.StatusCode, w, req)
		default:
			eFn(fmt.Errorf("%s: unexpected outcome: %w", op, firebaseauth.ErrInvalidParameter), w, req)
		}
	}, nil
}
