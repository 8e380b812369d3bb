package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/metrics"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"
)

// otpRetention is the fixed sweep window for OTP records; it is not
// tenant-configurable.
const otpRetention = 24 * time.Hour

// CleanupService sweeps expired links, sessions and OTP records past the
// tenant-configured retention. One tenant's failure never aborts the rest,
// and a tick is skipped for a tenant whose previous sweep is still running.
type CleanupService struct {
	Links    MagicLinkStore
	Sessions CustomerSessionStore
	OTPs     OTPStore
	Tenants  TenantStore
	Policy   *ExpiryPolicy

	Interval time.Duration
	Now      func() time.Time

	mu       sync.Mutex
	inFlight map[int64]bool
	sweeping bool
}

func NewCleanupService(
	links MagicLinkStore,
	sessions CustomerSessionStore,
	otps OTPStore,
	tenants TenantStore,
	policy *ExpiryPolicy,
	interval time.Duration,
) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupService{
		Links:    links,
		Sessions: sessions,
		OTPs:     otps,
		Tenants:  tenants,
		Policy:   policy,
		Interval: interval,
		Now:      timeutil.Now,
		inFlight: make(map[int64]bool),
	}
}

// Run executes sweeps on a fixed interval until the context is cancelled.
func (s *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	log.Printf("[Cleanup] scheduler started, interval %s", s.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Cleanup] scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass over all tenants. A pass is skipped entirely
// if the previous one is still running.
func (s *CleanupService) Sweep(ctx context.Context) {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		log.Printf("[Cleanup] previous sweep still running, skipping tick")
		return
	}
	s.sweeping = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	tenantIDs, err := s.Tenants.ListTenantIDs(ctx)
	if err != nil {
		log.Printf("[Cleanup] list tenants failed: %v", err)
		return
	}

	for _, tenantID := range tenantIDs {
		if err := s.SweepTenant(ctx, tenantID); err != nil {
			// Isolated per tenant: log and move on.
			log.Printf("[Cleanup] tenant %d sweep failed: %v", tenantID, err)
		}
	}

	// OTP records are swept globally on a fixed window.
	cutoff := s.Now().Add(-otpRetention)
	deleted, err := s.OTPs.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[Cleanup] otp sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		metrics.CleanupDeleted.WithLabelValues("otp").Add(float64(deleted))
		log.Printf("[Cleanup] deleted %d otp records", deleted)
	}
}

// SweepTenant deletes a single tenant's links and sessions whose expiry is
// older than the tenant's retention window. Concurrent sweeps of the same
// tenant are skipped cooperatively.
func (s *CleanupService) SweepTenant(ctx context.Context, tenantID int64) error {
	s.mu.Lock()
	if s.inFlight[tenantID] {
		s.mu.Unlock()
		log.Printf("[Cleanup] tenant %d sweep already in flight, skipping", tenantID)
		return nil
	}
	s.inFlight[tenantID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, tenantID)
		s.mu.Unlock()
	}()

	retention, enabled, err := s.Policy.Retention(ctx, tenantID)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	cutoff := s.Now().Add(-retention)

	links, err := s.Links.DeleteExpiredBefore(ctx, tenantID, cutoff)
	if err != nil {
		return err
	}
	sessions, err := s.Sessions.DeleteExpiredBefore(ctx, tenantID, cutoff)
	if err != nil {
		return err
	}

	if links > 0 {
		metrics.CleanupDeleted.WithLabelValues("link").Add(float64(links))
	}
	if sessions > 0 {
		metrics.CleanupDeleted.WithLabelValues("session").Add(float64(sessions))
	}
	if links > 0 || sessions > 0 {
		log.Printf("[Cleanup] tenant %d: deleted %d links, %d sessions", tenantID, links, sessions)
	}
	return nil
}
