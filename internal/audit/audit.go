package audit

import (
	"context"

	"github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

// Audit actions for social-service.
const (
	ActionCreateProfile      = "user.create_profile"
	ActionFollow             = "social.follow"
	ActionUnfollow           = "social.unfollow"
	ActionCreateEvent        = "event.create"
	ActionPresignCover       = "event.presign_cover"
	ActionRegister           = "registration.create"
	ActionChangeRegistration = "registration.change_status"
	ActionCancelRegistration = "registration.cancel"
	ActionRepairCounters     = "counters.repair"
	ActionCreatePost         = "content.create_post"
	ActionCreateRoute        = "content.create_route"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogTarget emits an audit log about an action userID took on targetID.
func LogTarget(ctx context.Context, action string, userID, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID, targetID, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Str(FieldDetail, detail).
		Msg(msg)
}
