package shiftAuth

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	pwhash "github.com/MrEthical07/shiftAuth/password"
	"github.com/MrEthical07/shiftAuth/permission"
)

// RegisterAccount creates an account holding the User role and returns its
// user id. Elevated roles are only reachable through [Engine.UpdateRole].
func (e *Engine) RegisterAccount(ctx context.Context, req NewAccount) (int64, error) {
	return e.createAccount(ctx, req, permission.RoleUser)
}

// BootstrapOwner creates the first account of a deployment holding the Owner
// role. It fails with [ErrAccountExists] once an owner exists.
func (e *Engine) BootstrapOwner(ctx context.Context, req NewAccount) (int64, error) {
	return e.createAccount(ctx, req, permission.RoleOwner)
}

func (e *Engine) createAccount(ctx context.Context, req NewAccount, role permission.Role) (int64, error) {
	if e == nil || e.directory == nil || e.verifier == nil {
		return 0, ErrEngineNotReady
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return 0, e.accountCreationFailed(ctx, username, ErrBadRequest, "empty_username")
	}
	if err := e.checkPasswordPolicy(req.Password); err != nil {
		return 0, e.accountCreationFailed(ctx, username, err, "password_length")
	}

	hash, err := e.verifier.Hash(req.Password)
	if err != nil {
		if errors.Is(err, pwhash.ErrSecretTooShort) || errors.Is(err, pwhash.ErrSecretTooLong) {
			return 0, e.accountCreationFailed(ctx, username, ErrPasswordPolicy, "password_length")
		}
		return 0, e.accountCreationFailed(ctx, username, internalError(err), "hash_failure")
	}

	userID, err := e.directory.CreateAccount(ctx, NewAccountRecord{
		FullName:     strings.TrimSpace(req.FullName),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditEventAccountCreationDuplicate, false, 0, "", ErrAccountExists, func() map[string]string {
				return map[string]string{"username": username, "role": role.String()}
			})
			return 0, ErrAccountExists
		}
		return 0, e.accountCreationFailed(ctx, username, internalError(err), "directory_failure")
	}

	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, userID, "", nil, func() map[string]string {
		return map[string]string{"username": username, "role": role.String()}
	})
	e.logger.InfoContext(ctx, "account created", "user_id", userID, "role", role.String())

	return userID, nil
}

func (e *Engine) checkPasswordPolicy(password string) error {
	n := utf8.RuneCountInString(password)
	if n < e.config.Password.MinLength || len(password) > e.config.Password.MaxLength {
		return ErrPasswordPolicy
	}
	return nil
}

func (e *Engine) accountCreationFailed(ctx context.Context, username string, err error, reason string) error {
	e.emitAudit(ctx, auditEventAccountCreationFailure, false, 0, "", err, func() map[string]string {
		return map[string]string{"username": username, "reason": reason}
	})
	return err
}
