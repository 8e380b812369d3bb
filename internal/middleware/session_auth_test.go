package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/auth"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"
)

// memSessionStore is the minimal CustomerSessionStore needed by
// SessionService.Resolve.
type memSessionStore struct {
	sessions map[string]*models.CustomerSession
}

func (m *memSessionStore) Create(_ context.Context, s *models.CustomerSession) error {
	m.sessions[s.SessionToken] = s
	return nil
}

func (m *memSessionStore) GetByID(_ context.Context, id int64) (*models.CustomerSession, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memSessionStore) GetByToken(_ context.Context, token string) (*models.CustomerSession, error) {
	return m.sessions[token], nil
}

func (m *memSessionStore) FindActiveByClient(context.Context, int64, int64, time.Time) (*models.CustomerSession, error) {
	return nil, nil
}

func (m *memSessionStore) SetQuoteIDs(context.Context, int64, []int64) error { return nil }

func (m *memSessionStore) MarkVerified(context.Context, int64, string, []int64, time.Time) error {
	return nil
}

func (m *memSessionStore) TouchActivity(context.Context, int64, time.Time) error { return nil }

func (m *memSessionStore) Revoke(context.Context, int64, time.Time) error { return nil }

func (m *memSessionStore) RevokeAllForClient(context.Context, int64, int64, time.Time) (int64, error) {
	return 0, nil
}

func (m *memSessionStore) ListByTenant(context.Context, int64) ([]*models.CustomerSession, error) {
	return nil, nil
}

func (m *memSessionStore) ListRecentByClient(context.Context, int64, int64, int) ([]*models.CustomerSession, error) {
	return nil, nil
}

func (m *memSessionStore) DeleteExpiredBefore(context.Context, int64, time.Time) (int64, error) {
	return 0, nil
}

func setupSessionAuth(t *testing.T) (*SessionAuthMiddleware, *auth.SessionTokenManager, *memSessionStore) {
	t.Helper()
	store := &memSessionStore{sessions: make(map[string]*models.CustomerSession)}
	tokens := auth.NewSessionTokenManager("test-secret", "test", 90)
	sessionService := services.NewSessionService(store, tokens)
	return NewSessionAuthMiddleware(tokens, sessionService), tokens, store
}

func seedSession(t *testing.T, tokens *auth.SessionTokenManager, store *memSessionStore, clientID, tenantID int64) string {
	t.Helper()
	token, err := tokens.GenerateSessionToken(clientID, tenantID)
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}
	store.sessions[token] = &models.CustomerSession{
		ID:           1,
		SessionToken: token,
		TenantID:     tenantID,
		ClientID:     clientID,
		QuoteIDs:     []int64{100},
		ExpiresAt:    time.Now().Add(24 * time.Hour),
	}
	return token
}

func TestAuthenticateMissingHeader(t *testing.T) {
	mw, _, _ := setupSessionAuth(t)

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/portal/session", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateGarbageToken(t *testing.T) {
	mw, _, _ := setupSessionAuth(t)

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/portal/session", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateValidTokenWithoutRow(t *testing.T) {
	mw, tokens, _ := setupSessionAuth(t)

	// A well-signed token with no backing session row must still fail;
	// revocation is honoured through the store, not the signature.
	token, err := tokens.GenerateSessionToken(1, 1)
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/portal/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateRevokedSession(t *testing.T) {
	mw, tokens, store := setupSessionAuth(t)
	token := seedSession(t, tokens, store, 1, 1)

	now := time.Now()
	store.sessions[token].RevokedAt = &now

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/portal/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateValidSession(t *testing.T) {
	mw, tokens, store := setupSessionAuth(t)
	token := seedSession(t, tokens, store, 42, 7)

	var got *models.CustomerSession
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/portal/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got == nil {
		t.Fatal("expected session in request context")
	}
	if got.ClientID != 42 || got.TenantID != 7 {
		t.Errorf("context session client/tenant = %d/%d, want 42/7", got.ClientID, got.TenantID)
	}
}
