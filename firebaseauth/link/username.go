package link

import (
	"regexp"
	"strings"
)

// localPartRE is a conservative dot-atom grammar for the local part of an
// email address; quoted local parts are deliberately not derived into
// usernames.
var localPartRE = regexp.MustCompile("^([a-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[a-z0-9!#$%&'*+/=?^_`{|}~-]+)*)@")

// usernameRE is the validity rule for derived usernames: word characters,
// dots and dashes only.
var usernameRE = regexp.MustCompile(`^[\w.\-]+$`)

const maxUsernameLength = 255

// NormalizeEmail lower-cases and trims an email address for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameFromEmail derives a candidate username from the local part of the
// email address.  It returns an empty string when the address doesn't match
// the conservative grammar.
func UsernameFromEmail(email string) string {
	m := localPartRE.FindStringSubmatch(NormalizeEmail(email))
	if m == nil {
		return ""
	}
	return m[1]
}

// IsUsernameValid reports whether the candidate passes the username
// validity rules.
func IsUsernameValid(username string) bool {
	if username == "" || len(username) > maxUsernameLength {
		return false
	}
	return usernameRE.MatchString(username)
}
