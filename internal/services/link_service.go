package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/auth"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/metrics"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"
)

// Outcomes of a link issuance.
const (
	LinkCreated = "created"
	LinkReused  = "reused"
)

// issueRetries bounds the reuse-vs-insert retry loop when two issuance
// requests for the same tuple race on the unique index.
const issueRetries = 3

// IssueLinkInput describes a link issuance request.
type IssueLinkInput struct {
	TenantID            int64
	ClientID            int64
	QuoteID             *int64
	Email               string
	Phone               string
	Purpose             string
	ExpiryDays          int // 0 = tenant default
	IsSingleUse         bool
	AllowMultiJobAccess bool
	Metadata            map[string]any
}

// IssueLinkResult carries the issued (or reused) link and its public URL.
type IssueLinkResult struct {
	Link      *models.MagicLink `json:"link"`
	URL       string            `json:"url"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Outcome   string            `json:"outcome"`
	Reused    bool              `json:"reused"`
}

// ValidationResult is the typed outcome of consuming a link token.
type ValidationResult struct {
	Valid   bool                    `json:"valid"`
	Reason  string                  `json:"reason,omitempty"`
	Message string                  `json:"message,omitempty"`
	Link    *models.MagicLink       `json:"link,omitempty"`
	Session *models.CustomerSession `json:"session,omitempty"`
}

// LinkService issues and validates magic links. Issuance owns the "single
// active multi-use link per (tenant, client, purpose)" invariant; validation
// is the only path that can create a customer session.
type LinkService struct {
	Links    MagicLinkStore
	Clients  ClientStore
	Policy   *ExpiryPolicy
	Sessions *SessionService
	Activity *ActivityLogger

	PortalBaseURL string

	Now func() time.Time
}

func NewLinkService(
	links MagicLinkStore,
	clients ClientStore,
	policy *ExpiryPolicy,
	sessions *SessionService,
	portalBaseURL string,
) *LinkService {
	return &LinkService{
		Links:         links,
		Clients:       clients,
		Policy:        policy,
		Sessions:      sessions,
		PortalBaseURL: portalBaseURL,
		Now:           timeutil.Now,
	}
}

// SetActivityLogger sets the audit logger for portal actions.
func (s *LinkService) SetActivityLogger(logger *ActivityLogger) {
	s.Activity = logger
}

// PortalURL builds the absolute portal entry URL for a token.
func (s *LinkService) PortalURL(token string) string {
	return fmt.Sprintf("%s/portal/access/%s", s.PortalBaseURL, token)
}

// Issue creates a magic link, or refreshes and returns the existing live
// multi-use link for the same (tenant, client, purpose). The token of a
// reused link never changes, so resends keep the public URL stable.
func (s *LinkService) Issue(ctx context.Context, input IssueLinkInput) (*IssueLinkResult, error) {
	if _, err := s.Clients.Get(ctx, input.TenantID, input.ClientID); err != nil {
		return nil, fmt.Errorf("issue link: %w", err)
	}

	expiresAt, settings, err := s.Policy.LinkExpiry(ctx, input.TenantID, input.ExpiryDays)
	if err != nil {
		return nil, fmt.Errorf("issue link: %w", err)
	}

	for attempt := 0; attempt < issueRetries; attempt++ {
		if !input.IsSingleUse {
			result, err := s.tryReuse(ctx, input, settings)
			if err != nil {
				return nil, err
			}
			if result != nil {
				metrics.LinksIssued.WithLabelValues(LinkReused).Inc()
				s.Activity.Log(input.TenantID, input.ClientID, models.ActionLinkReused,
					fmt.Sprintf("link %d refreshed for purpose %s", result.Link.ID, input.Purpose), "", "")
				return result, nil
			}
		}

		token, err := auth.GenerateLinkToken()
		if err != nil {
			return nil, fmt.Errorf("issue link: %w", err)
		}

		link := &models.MagicLink{
			Token:               token,
			TenantID:            input.TenantID,
			ClientID:            input.ClientID,
			QuoteID:             input.QuoteID,
			Email:               input.Email,
			Purpose:             input.Purpose,
			ExpiresAt:           expiresAt,
			IsSingleUse:         input.IsSingleUse,
			AllowMultiJobAccess: input.AllowMultiJobAccess,
			Metadata:            input.Metadata,
		}
		if input.Phone != "" {
			link.Phone = &input.Phone
		}

		err = s.Links.Create(ctx, link)
		if errors.Is(err, ErrDuplicateActiveLink) {
			// Lost the race against a concurrent issuance; next pass
			// reuses the winner's row.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("issue link: %w", err)
		}

		metrics.LinksIssued.WithLabelValues(LinkCreated).Inc()
		s.Activity.Log(input.TenantID, input.ClientID, models.ActionLinkIssued,
			fmt.Sprintf("link %d issued for purpose %s", link.ID, input.Purpose), "", "")

		return &IssueLinkResult{
			Link:      link,
			URL:       s.PortalURL(token),
			Token:     token,
			ExpiresAt: link.ExpiresAt,
			Outcome:   LinkCreated,
		}, nil
	}

	return nil, fmt.Errorf("issue link: conflicting concurrent issuance for client %d purpose %s",
		input.ClientID, input.Purpose)
}

// tryReuse refreshes the existing live multi-use link for the tuple, if one
// exists. An expired (but not revoked) row still occupies the unique index
// slot, so it is revoked here to make room for a fresh insert. Returns
// (nil, nil) when there is nothing to reuse.
func (s *LinkService) tryReuse(ctx context.Context, input IssueLinkInput, settings *models.TenantPortalSettings) (*IssueLinkResult, error) {
	existing, err := s.Links.FindCurrent(ctx, input.TenantID, input.ClientID, input.Purpose)
	if err != nil {
		return nil, fmt.Errorf("find current link: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	now := s.Now()
	if existing.IsExpired(now) {
		if err := s.Links.Revoke(ctx, existing.ID, now); err != nil {
			return nil, fmt.Errorf("retire expired link %d: %w", existing.ID, err)
		}
		return nil, nil
	}

	// Refresh to min(now+requested, now+max), never moving expiry backwards.
	days := s.Policy.ClampDays(settings, input.ExpiryDays)
	refreshed := now.Add(timeutil.Days(days))
	if refreshed.After(existing.ExpiresAt) {
		existing.ExpiresAt = refreshed
	}

	if input.QuoteID != nil {
		existing.QuoteID = input.QuoteID
	}
	if input.Email != "" {
		existing.Email = input.Email
	}
	if input.Phone != "" {
		existing.Phone = &input.Phone
	}
	if input.AllowMultiJobAccess {
		existing.AllowMultiJobAccess = true
	}
	existing.MergeMetadata(input.Metadata)

	if err := s.Links.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("refresh link %d: %w", existing.ID, err)
	}

	return &IssueLinkResult{
		Link:      existing,
		URL:       s.PortalURL(existing.Token),
		Token:     existing.Token,
		ExpiresAt: existing.ExpiresAt,
		Outcome:   LinkReused,
		Reused:    true,
	}, nil
}

// Validate consumes a link token. The first failing check determines the
// reported reason: missing token, then expiry, then revocation, then
// single-use consumption. Expiry is checked ahead of revocation so an
// expired link always reports expired. On success the link is marked used
// and the customer session is created or refreshed.
func (s *LinkService) Validate(ctx context.Context, token, ip, userAgent string) (*ValidationResult, error) {
	fail := func(link *models.MagicLink, reason string) *ValidationResult {
		metrics.LinkValidations.WithLabelValues(reason).Inc()
		if link != nil {
			s.Activity.Log(link.TenantID, link.ClientID, models.ActionLinkFailed, reason, ip, userAgent)
		}
		return &ValidationResult{Reason: reason, Message: ReasonMessage(reason)}
	}

	link, err := s.Links.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("validate link: %w", err)
	}
	if link == nil {
		return fail(nil, ReasonInvalidToken), nil
	}

	now := s.Now()
	if link.IsExpired(now) {
		return fail(link, ReasonExpired), nil
	}
	if link.IsRevoked() {
		return fail(link, ReasonRevoked), nil
	}
	if link.IsSingleUse && link.UsedAt != nil {
		return fail(link, ReasonAlreadyUsed), nil
	}

	if err := s.Links.MarkUsed(ctx, link.ID, now); err != nil {
		return nil, fmt.Errorf("mark link %d used: %w", link.ID, err)
	}
	link.AccessCount++
	if link.UsedAt == nil {
		link.UsedAt = &now
	}
	link.LastAccessedAt = &now

	session, err := s.Sessions.CreateOrGetSession(ctx, link, ip, userAgent)
	if err != nil {
		return nil, fmt.Errorf("validate link: %w", err)
	}

	metrics.LinkValidations.WithLabelValues("ok").Inc()
	s.Activity.Log(link.TenantID, link.ClientID, models.ActionLinkValidated,
		fmt.Sprintf("link %d validated", link.ID), ip, userAgent)

	return &ValidationResult{Valid: true, Link: link, Session: session}, nil
}
