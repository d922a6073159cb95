package shiftAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/shiftAuth/internal"
)

// IssueAPIKey creates a new API key for userID, replacing any previous one,
// and returns the plaintext token. The token is not recoverable afterwards;
// only its key id and a hash of its secret are stored.
func (e *Engine) IssueAPIKey(ctx context.Context, userID int64) (string, error) {
	if e == nil || e.directory == nil || e.verifier == nil {
		return "", ErrEngineNotReady
	}

	if _, err := e.directory.FindByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", internalError(err)
	}

	id, err := internal.NewAPIKeyID()
	if err != nil {
		return "", internalError(err)
	}
	secret, err := internal.NewAPIKeySecret()
	if err != nil {
		return "", internalError(err)
	}

	hash, err := e.verifier.Hash(internal.EncodeAPIKeySecret(secret[:]))
	if err != nil {
		return "", internalError(err)
	}

	rec := &APIKeyRecord{
		KeyID:      id.String(),
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.directory.SetAPIKey(ctx, userID, rec); err != nil {
		return "", internalError(err)
	}

	e.metricInc(MetricAPIKeyIssued)
	e.emitAudit(ctx, auditEventAPIKeyIssued, true, userID, "", nil, func() map[string]string {
		return map[string]string{"key_id": rec.KeyID}
	})

	return internal.EncodeAPIKey(id, secret), nil
}

// RevokeAPIKey removes the API key of userID. Revoking when no key exists
// succeeds.
func (e *Engine) RevokeAPIKey(ctx context.Context, userID int64) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}

	if err := e.directory.SetAPIKey(ctx, userID, nil); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return internalError(err)
	}

	e.metricInc(MetricAPIKeyRevoked)
	e.emitAudit(ctx, auditEventAPIKeyRevoked, true, userID, "", nil, nil)
	return nil
}

// HasAPIKey reports whether userID currently holds an API key.
func (e *Engine) HasAPIKey(ctx context.Context, userID int64) (bool, error) {
	if e == nil || e.directory == nil {
		return false, ErrEngineNotReady
	}
	_, ok, err := e.directory.APIKeyOf(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, ErrUserNotFound
		}
		return false, internalError(err)
	}
	return ok, nil
}
