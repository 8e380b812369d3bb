package models

// Tenant portal configuration defaults, applied when a tenant has no
// explicit settings row.
const (
	DefaultExpiryDays  = 7
	DefaultMaxDays     = 90
	DefaultCleanupDays = 30
)

// TenantPortalSettings is the per-tenant configuration the portal subsystem
// consumes. Branding is opaque and passed through to the notification
// collaborator only.
type TenantPortalSettings struct {
	TenantID              int64          `json:"tenant_id"`
	DefaultExpiryDays     int            `json:"default_expiry_days"`
	MaxExpiryDays         int            `json:"max_expiry_days"`
	AutoCleanupEnabled    bool           `json:"auto_cleanup_enabled"`
	AutoCleanupDays       int            `json:"auto_cleanup_days"`
	RequireOTPForMultiJob bool           `json:"require_otp_for_multi_job"`
	Branding              map[string]any `json:"branding,omitempty"`
}

// Normalize fills zero-valued fields with subsystem defaults.
func (s *TenantPortalSettings) Normalize() {
	if s.DefaultExpiryDays <= 0 {
		s.DefaultExpiryDays = DefaultExpiryDays
	}
	if s.MaxExpiryDays <= 0 {
		s.MaxExpiryDays = DefaultMaxDays
	}
	if s.AutoCleanupDays <= 0 {
		s.AutoCleanupDays = DefaultCleanupDays
	}
}
