package models

import "time"

// OTP delivery methods
const (
	DeliveryEmail = "email"
	DeliverySMS   = "sms"
)

// OTPVerification is a short-lived 6-digit code used to escalate a portal
// session from single-quote to full-client visibility.
type OTPVerification struct {
	ID                int64      `json:"id"`
	Code              string     `json:"-"` // never expose the code in responses
	TenantID          int64      `json:"tenant_id"`
	ClientID          int64      `json:"client_id"`
	CustomerSessionID int64      `json:"customer_session_id"`
	DeliveryMethod    string     `json:"delivery_method"`
	DeliveryTarget    string     `json:"delivery_target"`
	ExpiresAt         time.Time  `json:"expires_at"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	AttemptCount      int        `json:"attempt_count"`
	LockedAt          *time.Time `json:"locked_at,omitempty"`
	IPAddress         *string    `json:"ip_address,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// IsExpired reports whether the code's expiry has passed at the given time.
func (o *OTPVerification) IsExpired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}

// IsConsumed reports whether the code was already used successfully.
func (o *OTPVerification) IsConsumed() bool {
	return o.VerifiedAt != nil
}

// IsLocked reports whether the code was permanently invalidated by too many
// failed attempts.
func (o *OTPVerification) IsLocked() bool {
	return o.LockedAt != nil
}

// RequestOTPRequest is the portal request body for requesting a code.
type RequestOTPRequest struct {
	Method string `json:"method"` // email|sms
	Target string `json:"target,omitempty"`
}

// VerifyOTPRequest is the portal request body for verifying a code.
type VerifyOTPRequest struct {
	Code string `json:"code"`
}
