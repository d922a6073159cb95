package directory

import (
	"context"
	"testing"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/permission"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T, m *Memory, username string, role permission.Role) int64 {
	t.Helper()
	id, err := m.CreateAccount(context.Background(), shiftAuth.NewAccountRecord{
		Username:     username,
		PasswordHash: "hash-" + username,
		Role:         role,
	})
	require.NoError(t, err)
	return id
}

func TestMemoryCreateAndFind(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id := seedMemory(t, m, "alice", permission.RoleUser)

	acct, err := m.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, id, acct.UserID)
	require.Equal(t, permission.RoleUser, acct.Role)

	_, err = m.FindByUsername(ctx, "bob")
	require.ErrorIs(t, err, shiftAuth.ErrUserNotFound)

	_, err = m.CreateAccount(ctx, shiftAuth.NewAccountRecord{Username: "alice", Role: permission.RoleUser})
	require.ErrorIs(t, err, shiftAuth.ErrAccountExists)
}

func TestMemorySingleOwner(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seedMemory(t, m, "owner", permission.RoleOwner)
	_, err := m.CreateAccount(ctx, shiftAuth.NewAccountRecord{Username: "second", Role: permission.RoleOwner})
	require.ErrorIs(t, err, shiftAuth.ErrAccountExists)

	other := seedMemory(t, m, "other", permission.RoleAdmin)
	require.ErrorIs(t, m.SetRole(ctx, other, permission.RoleOwner), shiftAuth.ErrForbidden)
}

func TestMemoryTransferOwnership(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	owner := seedMemory(t, m, "owner", permission.RoleOwner)
	target := seedMemory(t, m, "target", permission.RoleUser)

	require.NoError(t, m.TransferOwnership(ctx, owner, target))

	role, err := m.RoleOf(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, permission.RoleAdmin, role)

	role, err = m.RoleOf(ctx, target)
	require.NoError(t, err)
	require.Equal(t, permission.RoleOwner, role)

	// the former owner can no longer hand off
	require.ErrorIs(t, m.TransferOwnership(ctx, owner, target), shiftAuth.ErrForbidden)
}

func TestMemoryAPIKeyLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id := seedMemory(t, m, "alice", permission.RoleUser)

	_, ok, err := m.APIKeyOf(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.SetAPIKey(ctx, id, &shiftAuth.APIKeyRecord{KeyID: "k1", SecretHash: "h1"}))
	acct, err := m.FindByAPIKeyID(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, id, acct.UserID)

	// rotation drops the old key id
	require.NoError(t, m.SetAPIKey(ctx, id, &shiftAuth.APIKeyRecord{KeyID: "k2", SecretHash: "h2"}))
	_, err = m.FindByAPIKeyID(ctx, "k1")
	require.ErrorIs(t, err, shiftAuth.ErrUserNotFound)

	require.NoError(t, m.SetAPIKey(ctx, id, nil))
	_, err = m.FindByAPIKeyID(ctx, "k2")
	require.ErrorIs(t, err, shiftAuth.ErrUserNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id := seedMemory(t, m, "alice", permission.RoleUser)
	require.NoError(t, m.SetAPIKey(ctx, id, &shiftAuth.APIKeyRecord{KeyID: "k1", SecretHash: "h1"}))

	acct, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	acct.Role = permission.RoleOwner
	acct.APIKey.SecretHash = "tampered"

	again, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, permission.RoleUser, again.Role)
	require.Equal(t, "h1", again.APIKey.SecretHash)
}

func TestMemoryProfileWithoutAccount(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id := m.AddProfile("No Login")

	ok, err := m.ExistsUserID(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = m.RoleOf(ctx, id)
	require.ErrorIs(t, err, shiftAuth.ErrUserNotFound)
}
