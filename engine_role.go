package shiftAuth

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/shiftAuth/permission"
)

// UpdateRole moves targetUserID to next on behalf of actorUserID.
//
// Promoting a target to Owner is an owner hand-off: the actor becomes Admin
// and the target becomes Owner in one atomic directory write. A change that
// would leave the target's role unchanged fails with [ErrBadRequest]; one
// the actor lacks authority for fails with [ErrForbidden]. Self-targeting is
// rejected by the HTTP layer before this is called.
func (e *Engine) UpdateRole(ctx context.Context, targetUserID int64, next permission.Role, actorUserID int64) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	if !next.Valid() {
		return internalError(permission.ErrUnknownRole)
	}

	actorRole, err := e.directory.RoleOf(ctx, actorUserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return e.roleUpdateFailed(ctx, actorUserID, targetUserID, next, ErrForbidden)
		}
		return e.roleUpdateFailed(ctx, actorUserID, targetUserID, next, internalError(err))
	}

	targetRole, err := e.directory.RoleOf(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return e.roleUpdateFailed(ctx, actorUserID, targetUserID, next, ErrUserNotFound)
		}
		return e.roleUpdateFailed(ctx, actorUserID, targetUserID, next, internalError(err))
	}

	tr, err := permission.CheckTransition(actorRole, targetRole, next)
	switch {
	case errors.Is(err, permission.ErrTransitionForbidden):
		return e.roleUpdateFailed(ctx, actorUserID, targetUserID, next, ErrForbidden)
	case errors.Is(err, permission.ErrTransitionNoOp):
		return e.roleUpdateFailed(ctx, actorUserID, targetUserID, next, ErrBadRequest)
	case err != nil:
		return e.roleUpdateFailed(ctx, actorUserID, targetUserID, next, internalError(err))
	}

	if tr.Kind == permission.TransitionHandOff {
		err = e.directory.TransferOwnership(ctx, actorUserID, targetUserID)
	} else {
		err = e.directory.SetRole(ctx, targetUserID, tr.Next)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			// the actor lost ownership between the read and the write
		case errors.Is(err, ErrUserNotFound):
			err = ErrUserNotFound
		default:
			err = internalError(err)
		}
		return e.roleUpdateFailed(ctx, actorUserID, targetUserID, next, err)
	}

	e.metricInc(MetricRoleUpdateSuccess)
	metadata := func() map[string]string {
		return map[string]string{
			"target_user_id": strconv.FormatInt(targetUserID, 10),
			"from":           targetRole.String(),
			"to":             tr.Next.String(),
		}
	}
	e.emitAudit(ctx, auditEventRoleUpdate, true, actorUserID, "", nil, metadata)

	if tr.Kind == permission.TransitionHandOff {
		e.metricInc(MetricOwnerHandOff)
		e.emitAudit(ctx, auditEventOwnerHandOff, true, actorUserID, "", nil, func() map[string]string {
			return map[string]string{
				"new_owner_user_id": strconv.FormatInt(targetUserID, 10),
				"actor_role":        tr.ActorNext.String(),
			}
		})
		e.logger.InfoContext(ctx, "ownership handed off",
			"from_user_id", actorUserID,
			"to_user_id", targetUserID,
		)
		return nil
	}

	e.logger.InfoContext(ctx, "role updated",
		"actor_user_id", actorUserID,
		"target_user_id", targetUserID,
		"from", targetRole.String(),
		"to", tr.Next.String(),
	)
	return nil
}

func (e *Engine) roleUpdateFailed(ctx context.Context, actorUserID, targetUserID int64, next permission.Role, err error) error {
	switch {
	case errors.Is(err, ErrForbidden):
		e.metricInc(MetricRoleUpdateForbidden)
	case errors.Is(err, ErrBadRequest):
		e.metricInc(MetricRoleUpdateNoOp)
	default:
		e.metricInc(MetricRoleUpdateFailure)
	}

	e.logger.WarnContext(ctx, "role update rejected",
		"actor_user_id", actorUserID,
		"target_user_id", targetUserID,
		"to", next.String(),
		"error", err,
	)
	e.emitAudit(ctx, auditEventRoleUpdate, false, actorUserID, "", err, func() map[string]string {
		return map[string]string{
			"target_user_id": strconv.FormatInt(targetUserID, 10),
			"to":             next.String(),
		}
	})
	return err
}
