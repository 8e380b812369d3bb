package models

import "time"

// Portal activity actions
const (
	ActionLinkIssued     = "link_issued"
	ActionLinkReused     = "link_reused"
	ActionLinkValidated  = "link_validated"
	ActionLinkFailed     = "link_failed"
	ActionOTPRequested   = "otp_requested"
	ActionOTPVerified    = "otp_verified"
	ActionOTPFailed      = "otp_failed"
	ActionSessionCreated = "session_created"
	ActionRevoked        = "revoked"
)

// PortalActivityLog is an audit record written fire-and-forget; failures to
// persist it never fail the surrounding state transition.
type PortalActivityLog struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	ClientID  int64     `json:"client_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
