package shiftAuth

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/shiftAuth/internal/audit"
	"github.com/MrEthical07/shiftAuth/permission"
)

// Account is the credential-bearing record of a user. A user has at most
// one account; profile-only users have none.
type Account struct {
	UserID       int64
	Username     string
	PasswordHash string
	// APIKey is nil when no key has been issued.
	APIKey *APIKeyRecord
	Role   permission.Role
}

// APIKeyRecord is the stored half of an API key: the public key id and the
// hash of its secret. The plaintext key is only returned at issuance.
type APIKeyRecord struct {
	KeyID      string
	SecretHash string
	CreatedAt  time.Time
}

// NewAccountRecord is the row written by [AccountDirectory.CreateAccount].
type NewAccountRecord struct {
	FullName     string
	Username     string
	PasswordHash string
	Role         permission.Role
}

// NewAccount is the registration input accepted by [Engine.RegisterAccount].
type NewAccount struct {
	FullName string
	Username string
	Password string
}

// AccountDirectory resolves identities and persists account mutations.
//
// Lookups return [ErrUserNotFound] when no account matches. SetRole must be
// a single-row atomic write; TransferOwnership must update both rows in one
// transaction and return [ErrForbidden] if from no longer holds the owner role.
type AccountDirectory interface {
	FindByUsername(ctx context.Context, username string) (Account, error)
	FindByID(ctx context.Context, userID int64) (Account, error)
	FindByAPIKeyID(ctx context.Context, keyID string) (Account, error)
	RoleOf(ctx context.Context, userID int64) (permission.Role, error)
	APIKeyOf(ctx context.Context, userID int64) (APIKeyRecord, bool, error)
	// SetAPIKey replaces the user's key; nil revokes it.
	SetAPIKey(ctx context.Context, userID int64, key *APIKeyRecord) error
	SetRole(ctx context.Context, userID int64, role permission.Role) error
	TransferOwnership(ctx context.Context, fromUserID, toUserID int64) error
	ExistsUserID(ctx context.Context, userID int64) (bool, error)
	// CreateAccount returns [ErrAccountExists] on a duplicate username or a
	// second owner.
	CreateAccount(ctx context.Context, rec NewAccountRecord) (int64, error)
}

// CredentialVerifier is a one-way hash capability for passwords and API-key secrets.
type CredentialVerifier interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
}

// AuthScheme names the credential that authenticated a request.
type AuthScheme string

const (
	AuthSchemeSession AuthScheme = "SESSION"
	AuthSchemeAPIKey  AuthScheme = "API_KEY"
	// AuthSchemeNone is reported when no credential was presented.
	AuthSchemeNone AuthScheme = "NONE"
)

// Credentials are the raw authentication inputs of one request. The Has*
// flags record presence separately from value so an empty cookie is not
// mistaken for a missing one.
type Credentials struct {
	APIKey     string
	HasAPIKey  bool
	SessionID  string
	HasSession bool
}

// SessionCredentials returns Credentials carrying only a session token.
func SessionCredentials(sessionID string) Credentials {
	return Credentials{SessionID: sessionID, HasSession: true}
}

// APIKeyCredentials returns Credentials carrying only an API key.
func APIKeyCredentials(key string) Credentials {
	return Credentials{APIKey: key, HasAPIKey: true}
}

// LoginResult is returned by a successful [Engine.Login].
type LoginResult struct {
	SessionID string
	UserID    int64
	Role      permission.Role
}

// SessionInfo describes one live session.
type SessionInfo struct {
	SessionID string
	UserID    int64
	ExpiresAt time.Time
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that writes events as structured log records.
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink] that logs through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
