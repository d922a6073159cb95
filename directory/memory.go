package directory

import (
	"context"
	"strings"
	"sync"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/permission"
)

type memoryUser struct {
	fullName string
	account  *shiftAuth.Account
}

// Memory is a mutex-guarded AccountDirectory. Usernames are matched exactly.
type Memory struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]*memoryUser
	byUsername map[string]int64
	byKeyID    map[string]int64
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[int64]*memoryUser),
		byUsername: make(map[string]int64),
		byKeyID:    make(map[string]int64),
	}
}

// AddProfile creates a user without an account and returns its id.
func (m *Memory) AddProfile(fullName string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.users[m.nextID] = &memoryUser{fullName: fullName}
	return m.nextID
}

func (m *Memory) FindByUsername(_ context.Context, username string) (shiftAuth.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return shiftAuth.Account{}, shiftAuth.ErrUserNotFound
	}
	return m.accountLocked(id)
}

func (m *Memory) FindByID(_ context.Context, userID int64) (shiftAuth.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(userID)
}

func (m *Memory) FindByAPIKeyID(_ context.Context, keyID string) (shiftAuth.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byKeyID[keyID]
	if !ok {
		return shiftAuth.Account{}, shiftAuth.ErrUserNotFound
	}
	return m.accountLocked(id)
}

func (m *Memory) RoleOf(_ context.Context, userID int64) (permission.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok || u.account == nil {
		return "", shiftAuth.ErrUserNotFound
	}
	return u.account.Role, nil
}

func (m *Memory) APIKeyOf(_ context.Context, userID int64) (shiftAuth.APIKeyRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok || u.account == nil {
		return shiftAuth.APIKeyRecord{}, false, shiftAuth.ErrUserNotFound
	}
	if u.account.APIKey == nil {
		return shiftAuth.APIKeyRecord{}, false, nil
	}
	return *u.account.APIKey, true, nil
}

func (m *Memory) SetAPIKey(_ context.Context, userID int64, key *shiftAuth.APIKeyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || u.account == nil {
		return shiftAuth.ErrUserNotFound
	}
	if old := u.account.APIKey; old != nil {
		delete(m.byKeyID, old.KeyID)
	}
	if key == nil {
		u.account.APIKey = nil
		return nil
	}
	if owner, taken := m.byKeyID[key.KeyID]; taken && owner != userID {
		return shiftAuth.ErrAccountExists
	}

	rec := *key
	u.account.APIKey = &rec
	m.byKeyID[key.KeyID] = userID
	return nil
}

func (m *Memory) SetRole(_ context.Context, userID int64, role permission.Role) error {
	if !role.Valid() {
		return permission.ErrUnknownRole
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || u.account == nil {
		return shiftAuth.ErrUserNotFound
	}
	if role == permission.RoleOwner && u.account.Role != permission.RoleOwner && m.hasOwnerLocked() {
		return shiftAuth.ErrForbidden
	}
	u.account.Role = role
	return nil
}

func (m *Memory) TransferOwnership(_ context.Context, fromUserID, toUserID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.users[fromUserID]
	if !ok || from.account == nil || from.account.Role != permission.RoleOwner {
		return shiftAuth.ErrForbidden
	}
	to, ok := m.users[toUserID]
	if !ok || to.account == nil {
		return shiftAuth.ErrUserNotFound
	}

	from.account.Role = permission.RoleAdmin
	to.account.Role = permission.RoleOwner
	return nil
}

func (m *Memory) ExistsUserID(_ context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[userID]
	return ok, nil
}

func (m *Memory) CreateAccount(_ context.Context, rec shiftAuth.NewAccountRecord) (int64, error) {
	if !rec.Role.Valid() {
		return 0, permission.ErrUnknownRole
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byUsername[rec.Username]; taken {
		return 0, shiftAuth.ErrAccountExists
	}
	if rec.Role == permission.RoleOwner && m.hasOwnerLocked() {
		return 0, shiftAuth.ErrAccountExists
	}

	m.nextID++
	m.users[m.nextID] = &memoryUser{
		fullName: strings.TrimSpace(rec.FullName),
		account: &shiftAuth.Account{
			UserID:       m.nextID,
			Username:     rec.Username,
			PasswordHash: rec.PasswordHash,
			Role:         rec.Role,
		},
	}
	m.byUsername[rec.Username] = m.nextID
	return m.nextID, nil
}

func (m *Memory) accountLocked(userID int64) (shiftAuth.Account, error) {
	u, ok := m.users[userID]
	if !ok || u.account == nil {
		return shiftAuth.Account{}, shiftAuth.ErrUserNotFound
	}

	acct := *u.account
	if acct.APIKey != nil {
		key := *acct.APIKey
		acct.APIKey = &key
	}
	return acct, nil
}

func (m *Memory) hasOwnerLocked() bool {
	for _, u := range m.users {
		if u.account != nil && u.account.Role == permission.RoleOwner {
			return true
		}
	}
	return false
}

var _ shiftAuth.AccountDirectory = (*Memory)(nil)
