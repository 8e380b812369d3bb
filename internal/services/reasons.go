package services

// Reason codes surfaced to the portal frontend. Each maps to a distinct
// user-facing message; validation failures are returned as typed results,
// never as Go errors, so the entry route can render a specific message
// without a generic 500.
const (
	ReasonInvalidToken    = "invalid_token"
	ReasonExpired         = "expired"
	ReasonRevoked         = "revoked"
	ReasonAlreadyUsed     = "already_used"
	ReasonInvalidSession  = "invalid_session"
	ReasonSessionNotFound = "session_not_found"
	ReasonInvalidCode     = "invalid_code"
	ReasonLocked          = "locked"
	ReasonRateLimited     = "rate_limited"
	ReasonClientNotFound  = "client_not_found"
	ReasonTenantNotFound  = "tenant_not_found"
)

var reasonMessages = map[string]string{
	ReasonInvalidToken:    "This link is not valid. Please check the link or request a new one.",
	ReasonExpired:         "This link has expired. Please request a new one.",
	ReasonRevoked:         "This link has been deactivated. Please contact your contractor.",
	ReasonAlreadyUsed:     "This link has already been used. Please request a new one.",
	ReasonInvalidSession:  "Your session is no longer valid. Please use your portal link again.",
	ReasonSessionNotFound: "No active session was found. Please use your portal link again.",
	ReasonInvalidCode:     "That code is not correct. Please try again.",
	ReasonLocked:          "Too many incorrect attempts. Please request a new code.",
	ReasonRateLimited:     "Too many code requests. Please wait a few minutes and try again.",
	ReasonClientNotFound:  "We could not find your account. Please contact your contractor.",
	ReasonTenantNotFound:  "We could not find this portal. Please contact your contractor.",
}

// OTP-specific wording for reasons shared with the link path.
var otpReasonMessages = map[string]string{
	ReasonExpired:     "That code has expired. Please request a new one.",
	ReasonAlreadyUsed: "That code has already been used. Please request a new one.",
}

// ReasonMessage returns the user-facing message for a reason code.
func ReasonMessage(reason string) string {
	if msg, ok := reasonMessages[reason]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}

// OTPReasonMessage returns the user-facing message for an OTP reason code.
func OTPReasonMessage(reason string) string {
	if msg, ok := otpReasonMessages[reason]; ok {
		return msg
	}
	return ReasonMessage(reason)
}
