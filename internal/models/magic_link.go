package models

import "time"

// Link purposes
const (
	PurposePortalAccess = "portal_access"
	PurposeQuoteView    = "quote_view"
	PurposePayment      = "payment"
)

// Link/session lifecycle statuses used by admin list filters
const (
	StatusActive       = "active"
	StatusExpired      = "expired"
	StatusExpiringSoon = "expiring_soon"
)

// ExpiringSoonWindow is how far ahead of expiry a link counts as "expiring soon".
const ExpiringSoonWindow = 3 * 24 * time.Hour

// MagicLink is a passwordless portal access link. The token is an opaque
// high-entropy hex string used as an exact-match lookup key.
type MagicLink struct {
	ID                  int64          `json:"id"`
	Token               string         `json:"-"` // never expose the raw token in list/detail responses
	TenantID            int64          `json:"tenant_id"`
	ClientID            int64          `json:"client_id"`
	QuoteID             *int64         `json:"quote_id,omitempty"`
	Email               string         `json:"email"`
	Phone               *string        `json:"phone,omitempty"`
	Purpose             string         `json:"purpose"`
	ExpiresAt           time.Time      `json:"expires_at"`
	IsSingleUse         bool           `json:"is_single_use"`
	UsedAt              *time.Time     `json:"used_at,omitempty"`
	LastAccessedAt      *time.Time     `json:"last_accessed_at,omitempty"`
	AccessCount         int            `json:"access_count"`
	AllowMultiJobAccess bool           `json:"allow_multi_job_access"`
	RevokedAt           *time.Time     `json:"revoked_at,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// IsExpired reports whether the link's expiry has passed at the given time.
func (l *MagicLink) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// IsRevoked reports whether the link has been revoked.
func (l *MagicLink) IsRevoked() bool {
	return l.RevokedAt != nil
}

// Status classifies the link for admin list filters.
func (l *MagicLink) Status(now time.Time) string {
	switch {
	case l.IsRevoked() || l.IsExpired(now):
		return StatusExpired
	case l.ExpiresAt.Before(now.Add(ExpiringSoonWindow)):
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// MergeMetadata overlays the given metadata onto the link's existing
// metadata, keeping keys that are not overridden.
func (l *MagicLink) MergeMetadata(extra map[string]any) {
	if len(extra) == 0 {
		return
	}
	if l.Metadata == nil {
		l.Metadata = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		l.Metadata[k] = v
	}
}

// IssueLinkRequest is the admin request body for issuing a portal link.
type IssueLinkRequest struct {
	TenantID            int64          `json:"tenant_id"`
	ClientID            int64          `json:"client_id"`
	QuoteID             *int64         `json:"quote_id,omitempty"`
	Email               string         `json:"email,omitempty"`
	Phone               string         `json:"phone,omitempty"`
	Purpose             string         `json:"purpose"`
	ExpiryDays          int            `json:"expiry_days,omitempty"` // 0 = tenant default
	IsSingleUse         bool           `json:"is_single_use"`
	AllowMultiJobAccess bool           `json:"allow_multi_job_access"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// ExtendLinkRequest extends a link's expiry by a number of days.
type ExtendLinkRequest struct {
	Days int `json:"days"`
}
