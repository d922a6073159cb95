package permission

import "errors"

var (
	// ErrTransitionForbidden is returned when the acting role may not apply the change.
	ErrTransitionForbidden = errors.New("role transition forbidden")
	// ErrTransitionNoOp is returned when the target already holds the requested role.
	ErrTransitionNoOp = errors.New("role transition is a no-op")
)

// TransitionKind tells the caller which write applies an allowed transition.
type TransitionKind uint8

const (
	// TransitionSetRole updates the target's role in a single-row write.
	TransitionSetRole TransitionKind = iota + 1
	// TransitionHandOff promotes the target to owner and demotes the acting
	// owner to admin in one atomic write.
	TransitionHandOff
)

// Transition is the outcome of a legal role change.
type Transition struct {
	Kind TransitionKind
	// Next is the role the target ends with.
	Next Role
	// ActorNext is the role the actor ends with. Only set for TransitionHandOff.
	ActorNext Role
}

// CheckTransition decides whether an actor holding actor may move a target
// currently holding target to next.
//
// It returns ErrUnknownRole for values outside the role set, ErrTransitionNoOp
// when target already equals next, and ErrTransitionForbidden when the actor
// lacks authority. The check is pure; identity (self-targeting) is the
// caller's concern.
func CheckTransition(actor, target, next Role) (Transition, error) {
	if !actor.Valid() || !target.Valid() || !next.Valid() {
		return Transition{}, ErrUnknownRole
	}
	if target == next {
		return Transition{}, ErrTransitionNoOp
	}

	switch next {
	case RoleOwner:
		if actor != RoleOwner {
			return Transition{}, ErrTransitionForbidden
		}
		return Transition{Kind: TransitionHandOff, Next: RoleOwner, ActorNext: RoleAdmin}, nil

	case RoleAdmin:
		if !actor.AtLeast(RoleAdmin) {
			return Transition{}, ErrTransitionForbidden
		}
		// owner cannot be demoted through this path
		if target == RoleOwner {
			return Transition{}, ErrTransitionForbidden
		}

	case RoleManager:
		if !actor.AtLeast(RoleManager) {
			return Transition{}, ErrTransitionForbidden
		}
		if actor == RoleManager && target.Above(RoleManager) {
			return Transition{}, ErrTransitionForbidden
		}
		if actor == RoleAdmin && target == RoleOwner {
			return Transition{}, ErrTransitionForbidden
		}

	case RoleUser:
		if actor.Below(target) {
			return Transition{}, ErrTransitionForbidden
		}

	default:
		return Transition{}, ErrUnknownRole
	}

	return Transition{Kind: TransitionSetRole, Next: next}, nil
}
