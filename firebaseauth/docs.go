/*
firebaseauth is a package for authenticating requests with a bearer identity
token issued by an external identity provider (the simplified implicit/
token-relay flow: a client-side SDK obtains the identity token and the
server verifies it).

Primary types provided by the package

* Strategy: the authentication state machine.  Its Authenticate function
turns one inbound request into a redirect to the authorization endpoint
(with anti-forgery state), a verified local user, or a well-classified
failure.

* Config: the strategy configuration (project id, issuer, authorization
endpoint, callback URL).

* StateStore: generates, persists and verifies anti-forgery state tokens
across the redirect round trip.  NullStateStore disables the protection;
SessionStateStore binds a single-use token to the caller's session.

* IdentityVerifier: verifies an opaque identity token and returns its
decoded claims set.  ProviderVerifier implements it against the issuer's
published key set via OIDC discovery.

* DecodedIdentity: the structured, verified result of validating a bearer
identity token.

The firebaseauth/link package maps verified external identities to local
application accounts, creating them if necessary.  The firebaseauth/callback
package provides http.HandlerFunc glue for embedding a Strategy into a web
application.
*/
package firebaseauth
