package models

import "time"

// Verification methods for a customer session
const (
	VerificationNone  = "none"
	VerificationEmail = "email"
	VerificationSMS   = "sms"
)

// CustomerSession is the persistent portal session derived from a validated
// magic link. While unverified it may see at most the single quote tied to
// the link that produced it; after OTP verification it sees every quote
// belonging to the client.
type CustomerSession struct {
	ID                 int64      `json:"id"`
	SessionToken       string     `json:"-"`
	TenantID           int64      `json:"tenant_id"`
	ClientID           int64      `json:"client_id"`
	IsVerified         bool       `json:"is_verified"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	VerificationMethod string     `json:"verification_method"`
	QuoteIDs           []int64    `json:"quote_ids"`
	ExpiresAt          time.Time  `json:"expires_at"`
	RevokedAt          *time.Time `json:"revoked_at,omitempty"`
	LastActivityAt     time.Time  `json:"last_activity_at"`
	ActivityCount      int        `json:"activity_count"`
	OriginMagicLinkID  int64      `json:"origin_magic_link_id"`
	CreatedAt          time.Time  `json:"created_at"`
}

// IsExpired reports whether the session's expiry has passed at the given time.
func (s *CustomerSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// IsRevoked reports whether the session has been revoked.
func (s *CustomerSession) IsRevoked() bool {
	return s.RevokedAt != nil
}

// HasQuote reports whether the session may view the given quote.
func (s *CustomerSession) HasQuote(quoteID int64) bool {
	for _, id := range s.QuoteIDs {
		if id == quoteID {
			return true
		}
	}
	return false
}

// Status classifies the session for admin list filters.
func (s *CustomerSession) Status(now time.Time) string {
	switch {
	case s.IsRevoked() || s.IsExpired(now):
		return StatusExpired
	case s.ExpiresAt.Before(now.Add(ExpiringSoonWindow)):
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}
