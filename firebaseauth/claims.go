package firebaseauth

import (
	"encoding/json"
	"time"
)

// IDToken is an opaque bearer identity token obtained by the client-side SDK
// and relayed to the server on the callback leg.
type IDToken string

// RedactedIDToken is the redacted string or json for an identity token
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// DecodedIdentity is the verified claims set of an identity token.
type DecodedIdentity struct {
	// Issuer must equal the configured provider issuer URL.  It is
	// populated from the verified token rather than the raw claims, since
	// some issuers encode the aud claim as a list.
	Issuer string `json:"-"`

	// Audience must equal the configured project identifier
	Audience string `json:"-"`

	// Subject is the stable external identity identifier
	Subject string `json:"-"`

	// UID is the provider's user id claim; it usually equals Subject
	UID string `json:"user_id"`

	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`

	// AuthTime is when the user authenticated, in unix seconds
	AuthTime int64 `json:"auth_time"`

	// Expiry is when the token expires
	Expiry time.Time `json:"-"`
}

// ExternalID returns the stable external identity identifier, preferring the
// provider's user id claim and falling back to the token subject.
func (d *DecodedIdentity) ExternalID() string {
	if d.UID != "" {
		return d.UID
	}
	return d.Subject
}
