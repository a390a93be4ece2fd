// Package identity provides the identity, session, and access-control core
// for a property-listing platform: session management over a pluggable
// credential provider, role-based gating, the application promotion workflow,
// and notification counts for the admin dashboard.
//
// Sessions:
//   - SessionManager owns the session state for one logical user. It reacts
//     to the credential provider's identity-change stream, resolves the
//     matching Profile asynchronously, and discards stale fetch results so
//     the session never shows a profile from a superseded identity. Callers
//     read immutable SessionSnapshot values and never mutate session state.
//
// Gating:
//   - Evaluate applies the authorization checks in a fixed order (loading,
//     authentication, role, verification, approval) and returns a Decision.
//     The gate never errors and never redirects; what to do with a denial is
//     the caller's concern. RouteGuard and middleware/guardware apply the
//     same checks at the HTTP layer from token claims.
//
// Promotion:
//   - ReviewApplicationHandler records a review decision and, on approval,
//     provisions a live account: a generated temporary secret the applicant
//     never sees, an approved and verified Profile carrying the role implied
//     by the application kind, and a best-effort credential-reset delivery.
//     AddStaffUserHandler and AddEstateUserHandler provision accounts
//     directly, without an application record.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the session
//     manager, the state machine, and the promotion workflow. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking the caller. MetricsCollector.Sink bridges the
//     same stream into Prometheus counters.
package identity
