/*
link maps verified external identities to local application accounts.

The Linker owns the durable association between an external identity id and
a local account id (the reverse index externalID -> uid).  Login runs the
account-provisioning protocol: return the already-linked account, merge with
an existing account found by email, or create a fresh account when the
registration policy allows it.  Attach covers the already-authenticated
linking path, and Delink removes the association when an account is deleted.

The local account store, the reverse index, and the registration policy are
external collaborators consumed through the UserStore, LinkStore and
SettingsSource contracts.
*/
package link
