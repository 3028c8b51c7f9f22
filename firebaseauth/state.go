package firebaseauth

import (
	"context"
	"fmt"

	"github.com/forgeauth/firesso/sdk/id"
)

// Meta carries strategy metadata a StateStore may need when generating or
// verifying anti-forgery state.
type Meta struct {
	// AuthorizationURL is the strategy's configured authorization endpoint
	AuthorizationURL string

	// SessionKey is the key a session-bound store should keep its state
	// under
	SessionKey string
}

// StateStore generates, persists and verifies anti-forgery state tokens
// across the redirect round trip of a login attempt.  Implementations must
// be concurrently safe, since a store is shared by every authentication
// attempt a Strategy handles.
type StateStore interface {
	// Store generates and persists a fresh state token for the attempt and
	// returns it for embedding in the redirect URL.  An empty returned
	// state with a nil error means the store doesn't use state.
	Store(ctx context.Context, req *Request, m Meta) (string, error)

	// Verify checks the state presented on the callback leg.  It returns
	// ok=false with a human-readable reason when the check ran and
	// rejected the state, and a non-nil error when the check could not be
	// run at all; callers must distinguish the two.
	Verify(ctx context.Context, req *Request, state string, m Meta) (ok bool, reason string, err error)
}

// Session is the minimal view of the caller's session a SessionStateStore
// needs.  Implementations must be concurrently safe.
type Session interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// NullStateStore disables anti-forgery protection: it stores nothing and
// verifies anything.
type NullStateStore struct{}

var _ StateStore = (*NullStateStore)(nil)

// Store implements StateStore and returns an empty state.
func (*NullStateStore) Store(ctx context.Context, req *Request, m Meta) (string, error) {
	return "", nil
}

// Verify implements StateStore and always succeeds.
func (*NullStateStore) Verify(ctx context.Context, req *Request, state string, m Meta) (bool, string, error) {
	return true, "", nil
}

// SessionStateStore binds a single-use anti-forgery state token to the
// caller's session, under the strategy's session key.
type SessionStateStore struct{}

var _ StateStore = (*SessionStateStore)(nil)

// Store implements StateStore.  It generates a fresh unguessable state
// token and persists it in the request's session.
func (*SessionStateStore) Store(ctx context.Context, req *Request, m Meta) (string, error) {
	const op = "firebaseauth.(SessionStateStore).Store"
	if req == nil || req.Session == nil {
		return "", fmt.Errorf("%s: %w", op, ErrSessionRequired)
	}
	state, err := id.New("st")
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate state: %w", op, ErrIDGeneratorFailed)
	}
	if err := req.Session.Set(ctx, m.SessionKey, state); err != nil {
		return "", fmt.Errorf("%s: unable to persist state: %w", op, err)
	}
	return state, nil
}

// Verify implements StateStore.  The stored state is deleted before the
// comparison runs, so a state token can never be presented twice, even after
// a successful check.
func (*SessionStateStore) Verify(ctx context.Context, req *Request, state string, m Meta) (bool, string, error) {
	const op = "firebaseauth.(SessionStateStore).Verify"
	if req == nil || req.Session == nil {
		return false, "", fmt.Errorf("%s: %w", op, ErrSessionRequired)
	}
	stored, found, err := req.Session.Get(ctx, m.SessionKey)
	if err != nil {
		return false, "", fmt.Errorf("%s: unable to read state: %w", op, err)
	}
	if !found || stored == "" {
		return false, "Unable to verify authorization request state.", nil
	}
	if err := req.Session.Delete(ctx, m.SessionKey); err != nil {
		return false, "", fmt.Errorf("%s: unable to invalidate state: %w", op, err)
	}
	if state == "" || state != stored {
		return false, "Invalid authorization request state.", nil
	}
	return true, "", nil
}
