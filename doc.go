// Package shiftAuth provides the authentication and authorization core of a
// multi-tenant timesheet backend: Redis sessions with a sliding TTL, API-key
// authentication, a four-level role hierarchy, and role updates with an
// atomic owner hand-off.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// shiftAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the [AccountDirectory] and [CredentialVerifier] ports, and value types
// (LoginResult, SessionInfo, MetricsSnapshot). Session persistence lives in
// the session package, role ordering and transition rules in permission,
// and throttling and audit dispatch under internal/.
//
// # Request flow
//
// A request handler wraps its context with [WithRequestScope], then calls
// [Engine.Authorize] or a guard built by [Engine.RequireRoles]. Within the
// scope the caller's identity and role are resolved at most once, however
// many guards run.
//
// # What this package must NOT do
//
//   - Expose Redis clients or key layouts in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports shiftAuth (no import cycles).
package shiftAuth
