package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"
)

// sessionHistoryLimit bounds the recent-session list on link detail.
const sessionHistoryLimit = 10

// LinkDetail is a link plus the client's recent session history.
type LinkDetail struct {
	Link     *models.MagicLink         `json:"link"`
	Status   string                    `json:"status"`
	URL      string                    `json:"url"`
	Sessions []*models.CustomerSession `json:"sessions"`
}

// ExpiryAnalytics counts links expiring within the standard admin horizons.
type ExpiryAnalytics struct {
	ExpiringToday   int `json:"expiring_today"`
	ExpiringIn1Day  int `json:"expiring_in_1_day"`
	ExpiringIn3Days int `json:"expiring_in_3_days"`
	ExpiringIn7Days int `json:"expiring_in_7_days"`
}

// LinkAdminService is the control surface consumed by the contractor-facing
// admin UI: list/inspect/extend/regenerate/deactivate links and sessions.
type LinkAdminService struct {
	Links      MagicLinkStore
	Sessions   CustomerSessionStore
	OTPs       OTPStore
	Policy     *ExpiryPolicy
	Issuer     *LinkService
	Revocation *RevocationService

	Now func() time.Time
}

func NewLinkAdminService(
	links MagicLinkStore,
	sessions CustomerSessionStore,
	otps OTPStore,
	policy *ExpiryPolicy,
	issuer *LinkService,
	revocation *RevocationService,
) *LinkAdminService {
	return &LinkAdminService{
		Links:      links,
		Sessions:   sessions,
		OTPs:       otps,
		Policy:     policy,
		Issuer:     issuer,
		Revocation: revocation,
		Now:        timeutil.Now,
	}
}

// ListLinks returns a tenant's links, optionally filtered by status
// (active|expired|expiring_soon).
func (s *LinkAdminService) ListLinks(ctx context.Context, tenantID int64, status string) ([]*models.MagicLink, error) {
	links, err := s.Links.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	if status == "" {
		return links, nil
	}

	now := s.Now()
	filtered := make([]*models.MagicLink, 0, len(links))
	for _, link := range links {
		if link.Status(now) == status {
			filtered = append(filtered, link)
		}
	}
	return filtered, nil
}

// ListSessions returns a tenant's sessions, optionally filtered by status.
func (s *LinkAdminService) ListSessions(ctx context.Context, tenantID int64, status string) ([]*models.CustomerSession, error) {
	sessions, err := s.Sessions.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if status == "" {
		return sessions, nil
	}

	now := s.Now()
	filtered := make([]*models.CustomerSession, 0, len(sessions))
	for _, session := range sessions {
		if session.Status(now) == status {
			filtered = append(filtered, session)
		}
	}
	return filtered, nil
}

// GetLinkDetail returns a link with its status, portal URL and the client's
// recent sessions.
func (s *LinkAdminService) GetLinkDetail(ctx context.Context, id int64) (*LinkDetail, error) {
	link, err := s.Links.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get link %d: %w", id, err)
	}

	history, err := s.Sessions.ListRecentByClient(ctx, link.TenantID, link.ClientID, sessionHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("get link %d sessions: %w", id, err)
	}

	return &LinkDetail{
		Link:     link,
		Status:   link.Status(s.Now()),
		URL:      s.Issuer.PortalURL(link.Token),
		Sessions: history,
	}, nil
}

// ExtendLink pushes a link's expiry out by N days, clamped so the total
// lifetime from now never exceeds the tenant maximum. Expiry never moves
// backwards.
func (s *LinkAdminService) ExtendLink(ctx context.Context, id int64, days int) (*models.MagicLink, error) {
	link, err := s.Links.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("extend link %d: %w", id, err)
	}

	settings, err := s.Policy.Settings(ctx, link.TenantID)
	if err != nil {
		return nil, fmt.Errorf("extend link %d: %w", id, err)
	}

	now := s.Now()
	extended := link.ExpiresAt.Add(timeutil.Days(days))
	if ceiling := now.Add(timeutil.Days(settings.MaxExpiryDays)); extended.After(ceiling) {
		extended = ceiling
	}
	if !extended.After(link.ExpiresAt) {
		return link, nil
	}

	if err := s.Links.ExtendExpiry(ctx, id, extended); err != nil {
		return nil, fmt.Errorf("extend link %d: %w", id, err)
	}
	link.ExpiresAt = extended
	return link, nil
}

// BulkExtendExpiring extends every link expiring within the soon window by
// N days. Returns the extended and failed counts; one failed link does not
// stop the rest, and the last failure is returned alongside the counts.
func (s *LinkAdminService) BulkExtendExpiring(ctx context.Context, tenantID int64, days int) (extended, failed int, err error) {
	now := s.Now()
	expiring, err := s.Links.ListExpiringBetween(ctx, tenantID, now, now.Add(models.ExpiringSoonWindow))
	if err != nil {
		return 0, 0, fmt.Errorf("bulk extend: %w", err)
	}

	var lastErr error
	for _, link := range expiring {
		if _, err := s.ExtendLink(ctx, link.ID, days); err != nil {
			failed++
			lastErr = err
			continue
		}
		extended++
	}
	return extended, failed, lastErr
}

// RegenerateLink revokes a link and reissues one with a fresh token for the
// same client, purpose and quote.
func (s *LinkAdminService) RegenerateLink(ctx context.Context, id int64) (*IssueLinkResult, error) {
	link, err := s.Links.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("regenerate link %d: %w", id, err)
	}

	if err := s.Revocation.RevokeLink(ctx, id); err != nil {
		return nil, err
	}

	input := IssueLinkInput{
		TenantID:            link.TenantID,
		ClientID:            link.ClientID,
		QuoteID:             link.QuoteID,
		Email:               link.Email,
		Purpose:             link.Purpose,
		IsSingleUse:         link.IsSingleUse,
		AllowMultiJobAccess: link.AllowMultiJobAccess,
		Metadata:            link.Metadata,
	}
	if link.Phone != nil {
		input.Phone = *link.Phone
	}
	return s.Issuer.Issue(ctx, input)
}

// GetExpiryAnalytics counts links expiring within the 0/1/3/7 day horizons.
func (s *LinkAdminService) GetExpiryAnalytics(ctx context.Context, tenantID int64) (*ExpiryAnalytics, error) {
	now := s.Now()

	horizon := func(to time.Time) (int, error) {
		links, err := s.Links.ListExpiringBetween(ctx, tenantID, now, to)
		if err != nil {
			return 0, err
		}
		return len(links), nil
	}

	today, err := horizon(timeutil.EndOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("expiry analytics: %w", err)
	}
	in1, err := horizon(now.Add(timeutil.Days(1)))
	if err != nil {
		return nil, fmt.Errorf("expiry analytics: %w", err)
	}
	in3, err := horizon(now.Add(timeutil.Days(3)))
	if err != nil {
		return nil, fmt.Errorf("expiry analytics: %w", err)
	}
	in7, err := horizon(now.Add(timeutil.Days(7)))
	if err != nil {
		return nil, fmt.Errorf("expiry analytics: %w", err)
	}

	return &ExpiryAnalytics{
		ExpiringToday:   today,
		ExpiringIn1Day:  in1,
		ExpiringIn3Days: in3,
		ExpiringIn7Days: in7,
	}, nil
}

// ListRecentLogins returns the tenant's recent OTP verifications for the
// admin audit view.
func (s *LinkAdminService) ListRecentLogins(ctx context.Context, tenantID int64, limit int) ([]*models.OTPVerification, error) {
	if limit <= 0 {
		limit = 100
	}
	logins, err := s.OTPs.ListRecentByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent logins: %w", err)
	}
	return logins, nil
}
