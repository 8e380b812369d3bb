package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/auth"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"
)

// SessionService creates and maintains customer sessions. It owns the
// scope-accumulation rule: an unverified session sees at most the single
// quote tied to the link that produced it; a verified session's quote set
// only ever grows.
type SessionService struct {
	Sessions CustomerSessionStore
	Tokens   *auth.SessionTokenManager
	Activity *ActivityLogger

	Now func() time.Time
}

func NewSessionService(sessions CustomerSessionStore, tokens *auth.SessionTokenManager) *SessionService {
	return &SessionService{
		Sessions: sessions,
		Tokens:   tokens,
		Now:      timeutil.Now,
	}
}

// SetActivityLogger sets the audit logger for session events.
func (s *SessionService) SetActivityLogger(logger *ActivityLogger) {
	s.Activity = logger
}

// CreateOrGetSession returns the client's live session, refreshed for the
// validated link, or creates one. The unverified scope-narrowing runs on
// every validation, not only on creation: a second single-quote link for a
// different quote must replace, never widen, an unverified session's scope.
func (s *SessionService) CreateOrGetSession(ctx context.Context, link *models.MagicLink, ip, userAgent string) (*models.CustomerSession, error) {
	now := s.Now()

	session, err := s.Sessions.FindActiveByClient(ctx, link.TenantID, link.ClientID, now)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	if session != nil {
		if err := s.refreshScope(ctx, session, link); err != nil {
			return nil, err
		}
		if err := s.Sessions.TouchActivity(ctx, session.ID, now); err != nil {
			return nil, fmt.Errorf("touch session %d: %w", session.ID, err)
		}
		session.LastActivityAt = now
		session.ActivityCount++
		return session, nil
	}

	token, err := s.Tokens.GenerateSessionToken(link.ClientID, link.TenantID)
	if err != nil {
		return nil, fmt.Errorf("mint session token: %w", err)
	}

	session = &models.CustomerSession{
		SessionToken:       token,
		TenantID:           link.TenantID,
		ClientID:           link.ClientID,
		VerificationMethod: models.VerificationNone,
		QuoteIDs:           quoteSeed(link),
		// A new session cannot outlive its originating link's expiry at
		// creation time. Later link extensions do not move it.
		ExpiresAt:         link.ExpiresAt,
		LastActivityAt:    now,
		ActivityCount:     1,
		OriginMagicLinkID: link.ID,
	}

	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.Activity.Log(link.TenantID, link.ClientID, models.ActionSessionCreated,
		fmt.Sprintf("session %d created from link %d", session.ID, link.ID), ip, userAgent)

	return session, nil
}

// refreshScope applies the verified/unverified quote rules to an existing
// session for a freshly validated link.
func (s *SessionService) refreshScope(ctx context.Context, session *models.CustomerSession, link *models.MagicLink) error {
	if link.QuoteID == nil {
		return nil
	}

	if !session.IsVerified {
		// Security control: an unverified session must never see more than
		// the single quote tied to the link that produced it.
		if len(session.QuoteIDs) != 1 || session.QuoteIDs[0] != *link.QuoteID {
			scoped := []int64{*link.QuoteID}
			if err := s.Sessions.SetQuoteIDs(ctx, session.ID, scoped); err != nil {
				return fmt.Errorf("narrow session %d scope: %w", session.ID, err)
			}
			session.QuoteIDs = scoped
		}
		return nil
	}

	// Verified sessions accumulate; the set never shrinks.
	if !session.HasQuote(*link.QuoteID) {
		grown := append(append([]int64{}, session.QuoteIDs...), *link.QuoteID)
		if err := s.Sessions.SetQuoteIDs(ctx, session.ID, grown); err != nil {
			return fmt.Errorf("grow session %d scope: %w", session.ID, err)
		}
		session.QuoteIDs = grown
	}
	return nil
}

// Resolve looks up a session by its signed token and checks that the row is
// still live. The JWT signature check happens in middleware before this.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.CustomerSession, string, error) {
	session, err := s.Sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, "", fmt.Errorf("resolve session: %w", err)
	}
	if session == nil {
		return nil, ReasonSessionNotFound, nil
	}

	now := s.Now()
	if session.IsRevoked() || session.IsExpired(now) {
		return nil, ReasonInvalidSession, nil
	}

	if err := s.Sessions.TouchActivity(ctx, session.ID, now); err != nil {
		return nil, "", fmt.Errorf("touch session %d: %w", session.ID, err)
	}
	session.LastActivityAt = now
	session.ActivityCount++

	return session, "", nil
}

func quoteSeed(link *models.MagicLink) []int64 {
	if link.QuoteID == nil {
		return []int64{}
	}
	return []int64{*link.QuoteID}
}
