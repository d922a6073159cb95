package internaldefs

import (
	shiftAuth "github.com/MrEthical07/shiftAuth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   shiftAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   shiftAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for [shiftAuth.Engine.AuditDropped].
const AuditDroppedName = "shiftauth_audit_dropped_total"

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: shiftAuth.MetricLoginSuccess, Name: "shiftauth_login_success_total", Help: "Logins that created a session."},
	{ID: shiftAuth.MetricLoginFailure, Name: "shiftauth_login_failure_total", Help: "Logins rejected for unknown users or wrong passwords."},
	{ID: shiftAuth.MetricLoginRateLimited, Name: "shiftauth_login_rate_limited_total", Help: "Logins refused by the failed-login throttle."},
	{ID: shiftAuth.MetricLoginExistingSession, Name: "shiftauth_login_existing_session_total", Help: "Logins refused because the client held a live session."},
	{ID: shiftAuth.MetricSessionCreated, Name: "shiftauth_session_created_total", Help: "Sessions written to the store."},
	{ID: shiftAuth.MetricSessionLimitRejected, Name: "shiftauth_session_limit_rejected_total", Help: "Session creations refused at the per-user cap."},
	{ID: shiftAuth.MetricLogout, Name: "shiftauth_logout_total", Help: "Single-session logouts."},
	{ID: shiftAuth.MetricLogoutAll, Name: "shiftauth_logout_all_total", Help: "Logout-everywhere operations."},
	{ID: shiftAuth.MetricAuthSessionSuccess, Name: "shiftauth_auth_session_success_total", Help: "Requests authenticated by session cookie."},
	{ID: shiftAuth.MetricAuthSessionFailure, Name: "shiftauth_auth_session_failure_total", Help: "Failed session cookie authentications."},
	{ID: shiftAuth.MetricAuthAPIKeySuccess, Name: "shiftauth_auth_api_key_success_total", Help: "Requests authenticated by API key."},
	{ID: shiftAuth.MetricAuthAPIKeyFailure, Name: "shiftauth_auth_api_key_failure_total", Help: "Failed API key authentications."},
	{ID: shiftAuth.MetricAuthMissingCredentials, Name: "shiftauth_auth_missing_credentials_total", Help: "Requests that presented no credential."},
	{ID: shiftAuth.MetricAuthCacheHit, Name: "shiftauth_auth_cache_hit_total", Help: "Gate calls answered from the request scope."},
	{ID: shiftAuth.MetricRoleGateAllowed, Name: "shiftauth_role_gate_allowed_total", Help: "Role-gated guards that passed."},
	{ID: shiftAuth.MetricRoleGateForbidden, Name: "shiftauth_role_gate_forbidden_total", Help: "Role-gated guards that refused the caller."},
	{ID: shiftAuth.MetricRoleUpdateSuccess, Name: "shiftauth_role_update_success_total", Help: "Applied role changes."},
	{ID: shiftAuth.MetricRoleUpdateForbidden, Name: "shiftauth_role_update_forbidden_total", Help: "Role changes refused for lack of authority."},
	{ID: shiftAuth.MetricRoleUpdateNoOp, Name: "shiftauth_role_update_noop_total", Help: "Role changes that would not change anything."},
	{ID: shiftAuth.MetricRoleUpdateFailure, Name: "shiftauth_role_update_failure_total", Help: "Role changes that failed in storage."},
	{ID: shiftAuth.MetricOwnerHandOff, Name: "shiftauth_owner_hand_off_total", Help: "Owner hand-offs."},
	{ID: shiftAuth.MetricAPIKeyIssued, Name: "shiftauth_api_key_issued_total", Help: "API keys issued or rotated."},
	{ID: shiftAuth.MetricAPIKeyRevoked, Name: "shiftauth_api_key_revoked_total", Help: "API key revocations."},
	{ID: shiftAuth.MetricAccountCreationSuccess, Name: "shiftauth_account_creation_success_total", Help: "Registered accounts."},
	{ID: shiftAuth.MetricAccountCreationDuplicate, Name: "shiftauth_account_creation_duplicate_total", Help: "Registrations rejected as duplicate."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: shiftAuth.MetricAuthorizeLatency, Name: "shiftauth_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix spells each bound as an instrument-name suffix.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus uses.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
