package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"
)

// RevocationService revokes links and sessions. Every operation is
// idempotent, so a partially completed cascade is safely retryable.
type RevocationService struct {
	Links    MagicLinkStore
	Sessions CustomerSessionStore
	Activity *ActivityLogger

	Now func() time.Time
}

func NewRevocationService(links MagicLinkStore, sessions CustomerSessionStore) *RevocationService {
	return &RevocationService{
		Links:    links,
		Sessions: sessions,
		Now:      timeutil.Now,
	}
}

// SetActivityLogger sets the audit logger for revocation events.
func (s *RevocationService) SetActivityLogger(logger *ActivityLogger) {
	s.Activity = logger
}

// RevokeLink revokes a single link. Revoking twice is a no-op, not an
// error.
func (s *RevocationService) RevokeLink(ctx context.Context, id int64) error {
	if err := s.Links.Revoke(ctx, id, s.Now()); err != nil {
		return fmt.Errorf("revoke link %d: %w", id, err)
	}
	return nil
}

// RevokeSession revokes a single session. Idempotent.
func (s *RevocationService) RevokeSession(ctx context.Context, id int64) error {
	if err := s.Sessions.Revoke(ctx, id, s.Now()); err != nil {
		return fmt.Errorf("revoke session %d: %w", id, err)
	}
	return nil
}

// RevokeAllForClient is the emergency lockout: every non-revoked session
// and link for the client is revoked. Atomic per entity; a failure partway
// leaves a state that a retry completes.
func (s *RevocationService) RevokeAllForClient(ctx context.Context, tenantID, clientID int64) (sessions, links int64, err error) {
	now := s.Now()

	sessions, err = s.Sessions.RevokeAllForClient(ctx, tenantID, clientID, now)
	if err != nil {
		return 0, 0, fmt.Errorf("revoke sessions for client %d: %w", clientID, err)
	}

	links, err = s.Links.RevokeAllForClient(ctx, tenantID, clientID, now)
	if err != nil {
		return sessions, 0, fmt.Errorf("revoke links for client %d: %w", clientID, err)
	}

	s.Activity.Log(tenantID, clientID, models.ActionRevoked,
		fmt.Sprintf("emergency revoke: %d sessions, %d links", sessions, links), "", "")

	return sessions, links, nil
}
