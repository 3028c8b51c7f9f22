package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")

	// ErrRegistrationDisabled reports a registration-policy rejection; it
	// is user-visible, not a system fault
	ErrRegistrationDisabled = errors.New("registration is disabled")
)

// Linker maps verified external identities to local accounts.  One linker
// serves many concurrent login attempts.
type Linker struct {
	users    UserStore
	links    LinkStore
	settings SettingsSource
	logger   hclog.Logger
}

// New creates a Linker.
// Supported options: WithLogger
func New(users UserStore, links LinkStore, settings SettingsSource, opt ...Option) (*Linker, error) {
	const op = "link.New"
	if users == nil {
		return nil, fmt.Errorf("%s: user store is nil: %w", op, ErrNilParameter)
	}
	if links == nil {
		return nil, fmt.Errorf("%s: link store is nil: %w", op, ErrNilParameter)
	}
	if settings == nil {
		return nil, fmt.Errorf("%s: settings source is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &Linker{
		users:    users,
		links:    links,
		settings: settings,
		logger:   opts.withLogger,
	}, nil
}

// Login maps the verified external identity to a local account id, creating
// or merging an account if necessary.  An already-linked identity returns
// its account immediately with no policy check.  An unknown identity is
// merged into an existing account carrying the same email address, or, when
// the registration policy allows, provisioned a fresh account with a
// username derived from the email's local part (falling back to the
// external id itself).
func (l *Linker) Login(ctx context.Context, externalID, name, email, picture string) (string, error) {
	const op = "link.(Linker).Login"
	if externalID == "" {
		return "", fmt.Errorf("%s: external id is empty: %w", op, ErrInvalidParameter)
	}

	uid, found, err := l.links.Get(ctx, externalID)
	if err != nil {
		return "", fmt.Errorf("%s: unable to look up identity link: %w", op, err)
	}
	if found {
		return uid, nil
	}

	policy, err := l.settings.Policy(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: unable to read registration policy: %w", op, err)
	}
	if !policy.AllowRegister {
		return "", fmt.Errorf("%s: %w", op, ErrRegistrationDisabled)
	}

	uid, found, err = l.users.FindIDByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("%s: unable to look up account by email: %w", op, err)
	}

	created := false
	if !found {
		username := UsernameFromEmail(email)
		if !IsUsernameValid(username) {
			username = externalID
		}
		uid, err = l.users.Create(ctx, NewAccount{
			Username: username,
			Email:    email,
			Name:     name,
		})
		if err != nil {
			return "", fmt.Errorf("%s: unable to create account: %w", op, err)
		}
		created = true
	}

	winner, madeLink, err := l.links.SetIfAbsent(ctx, externalID, uid)
	if err != nil {
		return "", fmt.Errorf("%s: unable to persist identity link: %w", op, err)
	}
	if !madeLink && winner != uid {
		// lost a concurrent first-login race; the stored link is
		// authoritative
		l.logger.Debug("identity already linked by a concurrent login",
			"externalID", externalID, "uid", winner)
		return winner, nil
	}

	var result *multierror.Error
	if created {
		confirmed := "0"
		if policy.AutoConfirmEmail {
			confirmed = "1"
		}
		// only meaningful on fresh creation; a merged pre-existing
		// account keeps its confirmation state
		if err := l.users.SetField(ctx, uid, FieldEmailConfirmed, confirmed); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := l.users.SetField(ctx, uid, FieldExternalID, externalID); err != nil {
		result = multierror.Append(result, err)
	}
	if picture != "" {
		if err := l.users.SetField(ctx, uid, FieldUploadedPicture, picture); err != nil {
			result = multierror.Append(result, err)
		}
		if err := l.users.SetField(ctx, uid, FieldPicture, picture); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return "", fmt.Errorf("%s: unable to finalize account attributes: %w", op, err)
	}

	l.logger.Debug("linked external identity", "externalID", externalID, "uid", uid, "created", created)
	return uid, nil
}

// Attach links the external identity directly to an already-known local
// account, bypassing Login.  Re-linking the same pair is a no-op aside from
// refreshing the stored link.
func (l *Linker) Attach(ctx context.Context, uid, externalID string) error {
	const op = "link.(Linker).Attach"
	if uid == "" {
		return fmt.Errorf("%s: uid is empty: %w", op, ErrInvalidParameter)
	}
	if externalID == "" {
		return fmt.Errorf("%s: external id is empty: %w", op, ErrInvalidParameter)
	}
	if err := l.users.SetField(ctx, uid, FieldExternalID, externalID); err != nil {
		return fmt.Errorf("%s: unable to record external id: %w", op, err)
	}
	if err := l.links.Set(ctx, externalID, uid); err != nil {
		return fmt.Errorf("%s: unable to persist identity link: %w", op, err)
	}
	return nil
}

// Delink removes the reverse-index entry for the account's linked external
// identity, typically on account deletion.  An account with no link is not
// an error.
func (l *Linker) Delink(ctx context.Context, uid string) error {
	const op = "link.(Linker).Delink"
	if uid == "" {
		return fmt.Errorf("%s: uid is empty: %w", op, ErrInvalidParameter)
	}
	externalID, found, err := l.users.GetField(ctx, uid, FieldExternalID)
	if err != nil {
		return fmt.Errorf("%s: unable to read external id for uid %s: %w", op, uid, err)
	}
	if !found || externalID == "" {
		return nil
	}
	if err := l.links.Delete(ctx, externalID); err != nil {
		return fmt.Errorf("%s: unable to remove identity link for uid %s: %w", op, uid, err)
	}
	return nil
}

// Association returns the external identity linked to the account, if any,
// for rendering account-association screens.
func (l *Linker) Association(ctx context.Context, uid string) (string, bool, error) {
	const op = "link.(Linker).Association"
	if uid == "" {
		return "", false, fmt.Errorf("%s: uid is empty: %w", op, ErrInvalidParameter)
	}
	externalID, found, err := l.users.GetField(ctx, uid, FieldExternalID)
	if err != nil {
		return "", false, fmt.Errorf("%s: unable to read external id: %w", op, err)
	}
	if !found || externalID == "" {
		return "", false, nil
	}
	return externalID, true, nil
}

// options is the set of available options for Linker functions
type options struct {
	withLogger hclog.Logger
}

func defaults() options {
	return options{
		withLogger: hclog.NewNullLogger(),
	}
}

func getOpts(opt ...Option) options {
	opts := defaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default
// options and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(opts)
	}
}

// WithLogger provides an optional hclog.Logger for the Linker
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withLogger = l
		}
	}
}
