// Package middleware adapts the shiftAuth authorization gate to net/http.
//
// # Guards
//
//   - [Authenticate] admits any caller with a valid API key or session cookie.
//   - [RequireRoles] additionally requires one of the listed roles; Owner and
//     Admin always pass.
//
// Both guards attach a request scope to the context, so stacking them on one
// route resolves the caller once. Handlers read the result with
// shiftAuth.UserIDFromContext and shiftAuth.RoleFromContext, or re-enter the
// gate with [CredentialsFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not
// decide anything itself: credentials are extracted here and judged by
// Engine.Authorize and Engine.RequireRoles. [StatusFor] is the single place
// engine errors become status codes.
package middleware
