package services

import (
	"context"
	"testing"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"
)

func testLink(id int64, quoteID *int64) *models.MagicLink {
	return &models.MagicLink{
		ID:        id,
		Token:     "token",
		TenantID:  1,
		ClientID:  10,
		QuoteID:   quoteID,
		Purpose:   models.PurposePortalAccess,
		ExpiresAt: testStart.Add(timeutil.Days(7)),
	}
}

func int64ptr(v int64) *int64 { return &v }

func TestCreateSessionSeedsSingleQuoteScope(t *testing.T) {
	env := newTestEnv(testStart)

	session, err := env.sessionService.CreateOrGetSession(context.Background(), testLink(1, int64ptr(100)), "", "")
	if err != nil {
		t.Fatalf("CreateOrGetSession failed: %v", err)
	}

	if session.IsVerified {
		t.Error("new session must start unverified")
	}
	if session.VerificationMethod != models.VerificationNone {
		t.Errorf("expected verification method %q, got %q", models.VerificationNone, session.VerificationMethod)
	}
	if len(session.QuoteIDs) != 1 || session.QuoteIDs[0] != 100 {
		t.Errorf("expected scope [100], got %v", session.QuoteIDs)
	}
	if session.SessionToken == "" {
		t.Error("expected a signed session token")
	}
}

func TestCreateSessionWithoutQuoteHasEmptyScope(t *testing.T) {
	env := newTestEnv(testStart)

	session, err := env.sessionService.CreateOrGetSession(context.Background(), testLink(1, nil), "", "")
	if err != nil {
		t.Fatalf("CreateOrGetSession failed: %v", err)
	}
	if len(session.QuoteIDs) != 0 {
		t.Errorf("expected empty scope, got %v", session.QuoteIDs)
	}
}

func TestUnverifiedSessionScopeNarrowsToNewLinkQuote(t *testing.T) {
	env := newTestEnv(testStart)
	ctx := context.Background()

	first, err := env.sessionService.CreateOrGetSession(ctx, testLink(1, int64ptr(100)), "", "")
	if err != nil {
		t.Fatalf("first CreateOrGetSession failed: %v", err)
	}

	// A second link for a different quote replaces the scope; it must never
	// grow an unverified session.
	second, err := env.sessionService.CreateOrGetSession(ctx, testLink(2, int64ptr(101)), "", "")
	if err != nil {
		t.Fatalf("second CreateOrGetSession failed: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected the live session %d to be reused, got %d", first.ID, second.ID)
	}
	if len(second.QuoteIDs) != 1 || second.QuoteIDs[0] != 101 {
		t.Errorf("expected scope narrowed to [101], got %v", second.QuoteIDs)
	}
}

func TestUnverifiedSessionScopeNeverExceedsOneQuote(t *testing.T) {
	env := newTestEnv(testStart)
	ctx := context.Background()

	quotes := []int64{100, 101, 102, 100}
	for i, q := range quotes {
		session, err := env.sessionService.CreateOrGetSession(ctx, testLink(int64(i+1), int64ptr(q)), "", "")
		if err != nil {
			t.Fatalf("CreateOrGetSession %d failed: %v", i, err)
		}
		if len(session.QuoteIDs) > 1 {
			t.Fatalf("unverified session scope grew to %v after link %d", session.QuoteIDs, i)
		}
	}
}

func TestVerifiedSessionScopeOnlyGrows(t *testing.T) {
	env := newTestEnv(testStart)
	ctx := context.Background()

	session, err := env.sessionService.CreateOrGetSession(ctx, testLink(1, int64ptr(100)), "", "")
	if err != nil {
		t.Fatalf("CreateOrGetSession failed: %v", err)
	}
	if err := env.sessions.MarkVerified(ctx, session.ID, models.VerificationEmail, []int64{100, 101, 102}, testStart); err != nil {
		t.Fatalf("MarkVerified failed: %v", err)
	}

	// A later single-quote link must not shrink a verified session's scope.
	refreshed, err := env.sessionService.CreateOrGetSession(ctx, testLink(2, int64ptr(101)), "", "")
	if err != nil {
		t.Fatalf("refresh CreateOrGetSession failed: %v", err)
	}
	if len(refreshed.QuoteIDs) != 3 {
		t.Errorf("verified scope shrank to %v", refreshed.QuoteIDs)
	}

	// A link for an unseen quote appends it.
	grown, err := env.sessionService.CreateOrGetSession(ctx, testLink(3, int64ptr(103)), "", "")
	if err != nil {
		t.Fatalf("grow CreateOrGetSession failed: %v", err)
	}
	if !grown.HasQuote(103) {
		t.Errorf("expected quote 103 appended, got %v", grown.QuoteIDs)
	}
	if len(grown.QuoteIDs) != 4 {
		t.Errorf("expected 4 quotes, got %v", grown.QuoteIDs)
	}
}

func TestSessionExpiryDoesNotTrackLaterLinkExtension(t *testing.T) {
	env := newTestEnv(testStart)
	ctx := context.Background()

	link := testLink(1, int64ptr(100))
	session, err := env.sessionService.CreateOrGetSession(ctx, link, "", "")
	if err != nil {
		t.Fatalf("CreateOrGetSession failed: %v", err)
	}
	created := session.ExpiresAt

	// Extending the link afterwards leaves the existing session untouched.
	link.ExpiresAt = link.ExpiresAt.Add(timeutil.Days(30))
	refreshed, err := env.sessionService.CreateOrGetSession(ctx, link, "", "")
	if err != nil {
		t.Fatalf("refresh CreateOrGetSession failed: %v", err)
	}
	if refreshed.ID != session.ID {
		t.Fatalf("expected session %d reused, got %d", session.ID, refreshed.ID)
	}
	if !refreshed.ExpiresAt.Equal(created) {
		t.Errorf("session expiry moved from %v to %v", created, refreshed.ExpiresAt)
	}
}

func TestResolveLiveSession(t *testing.T) {
	env := newTestEnv(testStart)
	ctx := context.Background()

	session, err := env.sessionService.CreateOrGetSession(ctx, testLink(1, int64ptr(100)), "", "")
	if err != nil {
		t.Fatalf("CreateOrGetSession failed: %v", err)
	}

	resolved, reason, err := env.sessionService.Resolve(ctx, session.SessionToken)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if reason != "" {
		t.Fatalf("unexpected reason %q", reason)
	}
	if resolved.ID != session.ID {
		t.Errorf("resolved session %d, expected %d", resolved.ID, session.ID)
	}
	if resolved.ActivityCount != session.ActivityCount+1 {
		t.Errorf("expected activity count bump to %d, got %d", session.ActivityCount+1, resolved.ActivityCount)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	env := newTestEnv(testStart)

	session, reason, err := env.sessionService.Resolve(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if session != nil {
		t.Fatal("expected nil session")
	}
	if reason != ReasonSessionNotFound {
		t.Errorf("expected reason %q, got %q", ReasonSessionNotFound, reason)
	}
}

func TestResolveRevokedSession(t *testing.T) {
	env := newTestEnv(testStart)
	ctx := context.Background()

	session, err := env.sessionService.CreateOrGetSession(ctx, testLink(1, int64ptr(100)), "", "")
	if err != nil {
		t.Fatalf("CreateOrGetSession failed: %v", err)
	}
	if err := env.sessions.Revoke(ctx, session.ID, testStart); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	resolved, reason, err := env.sessionService.Resolve(ctx, session.SessionToken)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved != nil {
		t.Fatal("expected nil session for revoked token")
	}
	if reason != ReasonInvalidSession {
		t.Errorf("expected reason %q, got %q", ReasonInvalidSession, reason)
	}
}

func TestResolveExpiredSession(t *testing.T) {
	env := newTestEnv(testStart)
	ctx := context.Background()

	session, err := env.sessionService.CreateOrGetSession(ctx, testLink(1, int64ptr(100)), "", "")
	if err != nil {
		t.Fatalf("CreateOrGetSession failed: %v", err)
	}

	env.advance(8 * 24 * time.Hour)

	resolved, reason, err := env.sessionService.Resolve(ctx, session.SessionToken)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved != nil {
		t.Fatal("expected nil session past its expiry")
	}
	if reason != ReasonInvalidSession {
		t.Errorf("expected reason %q, got %q", ReasonInvalidSession, reason)
	}
}
