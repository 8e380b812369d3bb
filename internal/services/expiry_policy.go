package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/cache"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"
)

// ExpiryPolicy resolves per-tenant link lifetimes and cleanup retention.
// Settings are cached in Redis with a short TTL; a cold or absent cache
// falls through to the tenant store.
type ExpiryPolicy struct {
	Tenants TenantStore

	Now func() time.Time
}

func NewExpiryPolicy(tenants TenantStore) *ExpiryPolicy {
	return &ExpiryPolicy{
		Tenants: tenants,
		Now:     timeutil.Now,
	}
}

// Settings returns the normalized portal settings for a tenant.
func (p *ExpiryPolicy) Settings(ctx context.Context, tenantID int64) (*models.TenantPortalSettings, error) {
	if cached, ok := cache.GetPortalSettings(ctx, tenantID); ok {
		return cached, nil
	}

	settings, err := p.Tenants.GetPortalSettings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve portal settings for tenant %d: %w", tenantID, err)
	}
	settings.Normalize()

	cache.SetPortalSettings(ctx, settings)
	return settings, nil
}

// ClampDays bounds a requested lifetime in days to the tenant maximum,
// substituting the tenant default when no explicit value was requested.
func (p *ExpiryPolicy) ClampDays(settings *models.TenantPortalSettings, requestedDays int) int {
	days := requestedDays
	if days <= 0 {
		days = settings.DefaultExpiryDays
	}
	if days > settings.MaxExpiryDays {
		days = settings.MaxExpiryDays
	}
	return days
}

// LinkExpiry resolves the expiry timestamp for a new or refreshed link:
// min(now + requestedDays, now + tenantMaxExpiryDays), with the tenant
// default applied when requestedDays is zero.
func (p *ExpiryPolicy) LinkExpiry(ctx context.Context, tenantID int64, requestedDays int) (time.Time, *models.TenantPortalSettings, error) {
	settings, err := p.Settings(ctx, tenantID)
	if err != nil {
		return time.Time{}, nil, err
	}
	days := p.ClampDays(settings, requestedDays)
	return p.Now().Add(timeutil.Days(days)), settings, nil
}

// Retention returns the cleanup retention window for a tenant and whether
// automatic cleanup is enabled for it.
func (p *ExpiryPolicy) Retention(ctx context.Context, tenantID int64) (time.Duration, bool, error) {
	settings, err := p.Settings(ctx, tenantID)
	if err != nil {
		return 0, false, err
	}
	return timeutil.Days(settings.AutoCleanupDays), settings.AutoCleanupEnabled, nil
}
