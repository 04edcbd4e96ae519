// Package trust is the trust core of a multi-tenant backend: it issues,
// rotates, and revokes session credentials, and it decides whether an acting
// user may perform a requested operation on a team, user, or role.
//
// Session lifecycle:
//   - A UserSession owns exactly one honorable refresh token at a time.
//     Sessions move NewlyCreated -> Active -> Refreshed or Ended; transitions
//     consume the session value and return the next state, so an ended session
//     cannot be refreshed by construction.
//   - Presenting any refresh token other than the current latest one is
//     treated as a reuse/theft signal and ends the session, even when the
//     legitimate token is still unexpired. This bounds a leaked refresh token
//     to a single use.
//
// Authorization:
//   - Every privileged operation goes through a Policy/Contract pair. A Policy
//     loads the acting user's role snapshot once; Authorize evaluates the
//     operation's predicate and, only on success, returns a Contract. Contract
//     constructors are unexported, so holding a Contract is proof that
//     authorization happened.
//
// Tokens:
//   - Tokens are sealed with AES-256-GCM over a JSON claims envelope
//     (registered JWT claims plus one typed custom-claims key). The symmetric
//     key is injected through Config at construction and shared read-only.
package trust
