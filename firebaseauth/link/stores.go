package link

import "context"

// Account field names the linker reads and writes through a UserStore.
const (
	FieldEmailConfirmed  = "email:confirmed"
	FieldExternalID      = "firebaseid"
	FieldPicture         = "picture"
	FieldUploadedPicture = "uploadedpicture"
)

// NewAccount carries the fields for a fresh local account.
type NewAccount struct {
	Username string
	Email    string
	Name     string
}

// UserStore is the linker's view of the local account store.  The linker
// only reads accounts and requests mutations through it; account ownership
// stays with the embedding application.  Implementations must be
// concurrently safe.
type UserStore interface {
	// Create makes a new local account and returns its id
	Create(ctx context.Context, a NewAccount) (uid string, err error)

	// SetField sets a single account attribute
	SetField(ctx context.Context, uid string, field string, value string) error

	// GetField reads a single account attribute; found is false when the
	// attribute was never set
	GetField(ctx context.Context, uid string, field string) (value string, found bool, err error)

	// FindIDByEmail returns the id of the account registered with the
	// given (normalized) email address, if one exists
	FindIDByEmail(ctx context.Context, email string) (uid string, found bool, err error)
}

// LinkStore is the reverse index externalID -> uid.  Implementations must be
// concurrently safe.
type LinkStore interface {
	// Get returns the uid linked to the external identity, if any
	Get(ctx context.Context, externalID string) (uid string, found bool, err error)

	// SetIfAbsent links the external identity to uid unless a link already
	// exists, atomically.  It returns the winning uid and whether this
	// call created the link.  Concurrent first logins for the same new
	// external identity must resolve to a single link.
	SetIfAbsent(ctx context.Context, externalID string, uid string) (winner string, created bool, err error)

	// Set unconditionally links the external identity to uid
	Set(ctx context.Context, externalID string, uid string) error

	// Delete removes the link for the external identity; deleting an
	// absent link is not an error
	Delete(ctx context.Context, externalID string) error
}

// Policy is the administrator-configured registration policy, read fresh per
// login attempt.
type Policy struct {
	// AllowLogin permits logging in via this provider at all
	AllowLogin bool

	// AllowRegister permits provisioning a new local account for an
	// unknown external identity
	AllowRegister bool

	// AutoConfirmEmail marks a freshly created account's email address as
	// confirmed
	AutoConfirmEmail bool
}

// SettingsSource supplies the current registration policy.  It is consulted
// on every decision point that depends on it, never cached across requests;
// an administrator may change the policy between the redirect and callback
// legs of a single login.
type SettingsSource interface {
	Policy(ctx context.Context) (Policy, error)
}
