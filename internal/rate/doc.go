// Package rate provides the Redis-backed failed-login throttle used by Engine.Login.
//
// # Window semantics
//
// Fixed-window counters: a Lua script INCRs the counter and sets its expiry
// only on the first failure, so later failures never extend the window. Keys
// carry the configured prefix:
//   - {prefix}al:{username}  login per-user, case-folded
//   - {prefix}ali:{ip}       login per-IP
//
// A successful login clears only the per-user counter.
//
// # What this package must NOT do
//
//   - Decide lockout policy beyond the attempt budget it is given.
//   - Be imported outside the shiftAuth module.
package rate
