// Package session provides the Redis-backed session store used by the
// authorization gate.
//
// # Key layout
//
//   - session:{id} holds the owning user id as a decimal string.
//   - user_sessions:{uid} is the set of that user's session ids.
//
// Both keys carry the same sliding TTL, reset on every [Store.Resolve]. The
// reverse set is an upper bound on the live sessions; [Store.ListActive] and
// [Store.Count] prune members whose forward key has expired.
//
// # Architecture boundaries
//
// This package owns session persistence and the per-user cap. It does NOT
// look up accounts, check roles, or decide cookie handling; those belong to
// the Engine.
//
// # What this package must NOT do
//
//   - Import shiftAuth or permission (no upward imports).
//   - Retry Redis failures; they surface as [ErrRedisUnavailable].
package session
