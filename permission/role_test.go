package permission

import (
	"errors"
	"testing"
)

func TestRoleRanks(t *testing.T) {
	want := map[Role]int{RoleOwner: 4, RoleAdmin: 3, RoleManager: 2, RoleUser: 1, Role("Guest"): 0}
	for r, rank := range want {
		if got := r.Rank(); got != rank {
			t.Fatalf("%q rank: got %d want %d", r, got, rank)
		}
	}
}

func TestRoleTotalOrder(t *testing.T) {
	roles := Roles()
	for i, a := range roles {
		for j, b := range roles {
			switch {
			case i < j:
				if !a.Above(b) || b.Above(a) || a.Compare(b) != 1 {
					t.Fatalf("expected %s > %s", a, b)
				}
			case i > j:
				if !a.Below(b) || a.Compare(b) != -1 {
					t.Fatalf("expected %s < %s", a, b)
				}
			default:
				if !a.Equal(b) || a.Compare(b) != 0 {
					t.Fatalf("expected %s == %s", a, b)
				}
			}
			if i != j && a.Equal(b) {
				t.Fatalf("distinct roles %s and %s compare equal", a, b)
			}
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Role
		err  error
	}{
		{in: "Owner", want: RoleOwner},
		{in: " admin ", want: RoleAdmin},
		{in: "MANAGER", want: RoleManager},
		{in: "user", want: RoleUser},
		{in: "root", err: ErrUnknownRole},
		{in: "", err: ErrUnknownRole},
	} {
		got, err := ParseRole(tc.in)
		if !errors.Is(err, tc.err) {
			t.Fatalf("ParseRole(%q) err = %v, want %v", tc.in, err, tc.err)
		}
		if got != tc.want {
			t.Fatalf("ParseRole(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPermitsAlwaysPassesOwnerAndAdmin(t *testing.T) {
	allowed := NewSet(RoleManager)

	if !Permits(RoleOwner, allowed) || !Permits(RoleAdmin, allowed) {
		t.Fatal("owner and admin must pass every gate")
	}
	if !Permits(RoleManager, allowed) {
		t.Fatal("manager is in the allow-list")
	}
	if Permits(RoleUser, allowed) {
		t.Fatal("user is not in the allow-list")
	}
	if Permits(Role(""), NewSet(Role(""))) {
		t.Fatal("invalid role must never pass")
	}
	if !Permits(RoleAdmin, NewSet()) {
		t.Fatal("admin passes an empty allow-list")
	}
}

func TestSetSliceOrdered(t *testing.T) {
	got := NewSet(RoleUser, RoleOwner, RoleManager, Role("bogus")).Slice()
	want := []Role{RoleOwner, RoleManager, RoleUser}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
