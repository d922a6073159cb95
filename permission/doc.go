// Package permission defines the four-tier account role hierarchy and the
// legality rules for changing a role.
//
// # Hierarchy
//
// Roles form a strict total order by [Role.Rank]:
// Owner(4) > Admin(3) > Manager(2) > User(1). Comparison is explicit
// ([Role.Above], [Role.Below], [Role.AtLeast]); there is no aliasing between
// tiers.
//
// # Transitions
//
// [CheckTransition] is a pure function deciding whether an actor may move a
// target from one role to another. Promotion to owner is reported as a
// hand-off ([TransitionHandOff]) that the caller must apply atomically.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import shiftAuth or any storage package.
//   - Resolve user identity; callers pass roles, not user ids.
package permission
