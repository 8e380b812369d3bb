package services

import (
	"context"
	"errors"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
)

// Sentinel errors surfaced by the store layer. Anything else coming out of
// a store is a persistence failure and propagates as fatal to the caller.
var (
	// ErrDuplicateActiveLink is returned by MagicLinkStore.Create when the
	// partial unique index on (tenant_id, client_id, purpose) rejects a
	// second live multi-use link.
	ErrDuplicateActiveLink = errors.New("duplicate active link for client and purpose")

	// ErrClientNotFound is returned when a client does not exist in the
	// tenant.
	ErrClientNotFound = errors.New("client not found")

	// ErrTenantNotFound is returned when a tenant does not exist.
	ErrTenantNotFound = errors.New("tenant not found")
)

// MagicLinkStore is the persistence surface for magic links. Lookups by
// token are exact-match only.
type MagicLinkStore interface {
	Create(ctx context.Context, link *models.MagicLink) error
	GetByID(ctx context.Context, id int64) (*models.MagicLink, error)
	// GetByToken returns (nil, nil) when no link matches the token.
	GetByToken(ctx context.Context, token string) (*models.MagicLink, error)
	// FindCurrent returns the most recent non-revoked multi-use link for the
	// tuple regardless of expiry, or (nil, nil).
	FindCurrent(ctx context.Context, tenantID, clientID int64, purpose string) (*models.MagicLink, error)
	// Update persists expiry, contact, quote and metadata changes made on
	// link reuse. The token is immutable.
	Update(ctx context.Context, link *models.MagicLink) error
	MarkUsed(ctx context.Context, id int64, now time.Time) error
	// Revoke is idempotent; revoking an already revoked link is a no-op.
	Revoke(ctx context.Context, id int64, now time.Time) error
	RevokeAllForClient(ctx context.Context, tenantID, clientID int64, now time.Time) (int64, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]*models.MagicLink, error)
	ListExpiringBetween(ctx context.Context, tenantID int64, from, to time.Time) ([]*models.MagicLink, error)
	ExtendExpiry(ctx context.Context, id int64, expiresAt time.Time) error
	DeleteExpiredBefore(ctx context.Context, tenantID int64, cutoff time.Time) (int64, error)
}

// CustomerSessionStore is the persistence surface for portal sessions.
type CustomerSessionStore interface {
	Create(ctx context.Context, session *models.CustomerSession) error
	GetByID(ctx context.Context, id int64) (*models.CustomerSession, error)
	// GetByToken returns (nil, nil) when no session matches.
	GetByToken(ctx context.Context, token string) (*models.CustomerSession, error)
	// FindActiveByClient returns the most recent non-expired, non-revoked
	// session for the client, or (nil, nil).
	FindActiveByClient(ctx context.Context, tenantID, clientID int64, now time.Time) (*models.CustomerSession, error)
	SetQuoteIDs(ctx context.Context, id int64, quoteIDs []int64) error
	MarkVerified(ctx context.Context, id int64, method string, quoteIDs []int64, now time.Time) error
	TouchActivity(ctx context.Context, id int64, now time.Time) error
	Revoke(ctx context.Context, id int64, now time.Time) error
	RevokeAllForClient(ctx context.Context, tenantID, clientID int64, now time.Time) (int64, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]*models.CustomerSession, error)
	ListRecentByClient(ctx context.Context, tenantID, clientID int64, limit int) ([]*models.CustomerSession, error)
	DeleteExpiredBefore(ctx context.Context, tenantID int64, cutoff time.Time) (int64, error)
}

// OTPStore is the persistence surface for OTP verifications.
type OTPStore interface {
	Create(ctx context.Context, otp *models.OTPVerification) error
	// GetLatestBySession returns the most recent OTP for the session,
	// consumed or not, or (nil, nil).
	GetLatestBySession(ctx context.Context, sessionID int64) (*models.OTPVerification, error)
	IncrementAttempts(ctx context.Context, id int64) error
	MarkVerified(ctx context.Context, id int64, now time.Time) error
	MarkLocked(ctx context.Context, id int64, now time.Time) error
	CountRecentByClient(ctx context.Context, tenantID, clientID int64, since time.Time) (int, error)
	// ListRecentByTenant returns only verified records, newest first.
	ListRecentByTenant(ctx context.Context, tenantID int64, limit int) ([]*models.OTPVerification, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ClientStore reads clients and their quote ownership. Client CRUD itself
// is outside this subsystem.
type ClientStore interface {
	// Get returns ErrClientNotFound when the client does not exist in the
	// tenant.
	Get(ctx context.Context, tenantID, clientID int64) (*models.Client, error)
	ListQuoteIDs(ctx context.Context, tenantID, clientID int64) ([]int64, error)
}

// TenantStore reads tenant-level portal configuration.
type TenantStore interface {
	// GetPortalSettings returns ErrTenantNotFound when the tenant does not
	// exist.
	GetPortalSettings(ctx context.Context, tenantID int64) (*models.TenantPortalSettings, error)
	ListTenantIDs(ctx context.Context) ([]int64, error)
}

// ActivityLogStore persists portal audit records.
type ActivityLogStore interface {
	Create(ctx context.Context, entry *models.PortalActivityLog) error
}
