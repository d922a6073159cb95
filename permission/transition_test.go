package permission

import (
	"errors"
	"testing"
)

func TestCheckTransitionTable(t *testing.T) {
	type tc struct {
		actor, target, next Role
		want                error
		kind                TransitionKind
	}
	cases := []tc{
		// owner hand-off
		{RoleOwner, RoleAdmin, RoleOwner, nil, TransitionHandOff},
		{RoleOwner, RoleUser, RoleOwner, nil, TransitionHandOff},
		{RoleAdmin, RoleManager, RoleOwner, ErrTransitionForbidden, 0},
		{RoleManager, RoleUser, RoleOwner, ErrTransitionForbidden, 0},
		{RoleUser, RoleUser, RoleOwner, ErrTransitionForbidden, 0},

		// to admin
		{RoleOwner, RoleManager, RoleAdmin, nil, TransitionSetRole},
		{RoleAdmin, RoleManager, RoleAdmin, nil, TransitionSetRole},
		{RoleAdmin, RoleUser, RoleAdmin, nil, TransitionSetRole},
		{RoleAdmin, RoleOwner, RoleAdmin, ErrTransitionForbidden, 0},
		{RoleManager, RoleUser, RoleAdmin, ErrTransitionForbidden, 0},
		{RoleUser, RoleUser, RoleAdmin, ErrTransitionForbidden, 0},

		// to manager
		{RoleAdmin, RoleUser, RoleManager, nil, TransitionSetRole},
		{RoleAdmin, RoleAdmin, RoleManager, nil, TransitionSetRole},
		{RoleOwner, RoleAdmin, RoleManager, nil, TransitionSetRole},
		{RoleManager, RoleUser, RoleManager, nil, TransitionSetRole},
		{RoleManager, RoleAdmin, RoleManager, ErrTransitionForbidden, 0},
		{RoleManager, RoleOwner, RoleManager, ErrTransitionForbidden, 0},
		{RoleAdmin, RoleOwner, RoleManager, ErrTransitionForbidden, 0},
		{RoleUser, RoleUser, RoleManager, ErrTransitionForbidden, 0},

		// to user
		{RoleManager, RoleManager, RoleUser, nil, TransitionSetRole},
		{RoleAdmin, RoleManager, RoleUser, nil, TransitionSetRole},
		{RoleAdmin, RoleAdmin, RoleUser, nil, TransitionSetRole},
		{RoleManager, RoleAdmin, RoleUser, ErrTransitionForbidden, 0},
		{RoleAdmin, RoleOwner, RoleUser, ErrTransitionForbidden, 0},
		{RoleUser, RoleManager, RoleUser, ErrTransitionForbidden, 0},
	}

	for _, c := range cases {
		got, err := CheckTransition(c.actor, c.target, c.next)
		if !errors.Is(err, c.want) {
			t.Fatalf("%s sets %s -> %s: err = %v, want %v", c.actor, c.target, c.next, err, c.want)
		}
		if err == nil && got.Kind != c.kind {
			t.Fatalf("%s sets %s -> %s: kind = %d, want %d", c.actor, c.target, c.next, got.Kind, c.kind)
		}
		if err == nil && got.Next != c.next {
			t.Fatalf("%s sets %s -> %s: next = %s", c.actor, c.target, c.next, got.Next)
		}
	}
}

func TestCheckTransitionHandOffDemotesActorToAdmin(t *testing.T) {
	got, err := CheckTransition(RoleOwner, RoleManager, RoleOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ActorNext != RoleAdmin {
		t.Fatalf("expected acting owner to become admin, got %q", got.ActorNext)
	}
}

func TestCheckTransitionSameRoleIsNoOp(t *testing.T) {
	for _, r := range Roles() {
		if _, err := CheckTransition(RoleOwner, r, r); !errors.Is(err, ErrTransitionNoOp) {
			t.Fatalf("owner setting %s to %s: expected no-op error, got %v", r, r, err)
		}
	}
}

func TestCheckTransitionUnknownRole(t *testing.T) {
	cases := [][3]Role{
		{RoleOwner, RoleUser, Role("Root")},
		{Role("Root"), RoleUser, RoleManager},
		{RoleOwner, Role(""), RoleManager},
	}
	for _, c := range cases {
		if _, err := CheckTransition(c[0], c[1], c[2]); !errors.Is(err, ErrUnknownRole) {
			t.Fatalf("%v: expected ErrUnknownRole, got %v", c, err)
		}
	}
}
