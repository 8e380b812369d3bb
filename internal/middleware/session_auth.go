package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/auth"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"
)

type contextKey string

const SessionKey contextKey = "customer_session"
const ClientIDKey contextKey = "client_id"
const TenantIDKey contextKey = "tenant_id"

// SessionAuthMiddleware authenticates portal requests with a customer
// session token. The signature and claim shape are checked CPU-only first;
// the store read afterwards is what honours revocation and row expiry.
type SessionAuthMiddleware struct {
	tokens   *auth.SessionTokenManager
	sessions *services.SessionService
}

func NewSessionAuthMiddleware(tokens *auth.SessionTokenManager, sessions *services.SessionService) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{
		tokens:   tokens,
		sessions: sessions,
	}
}

// Authenticate validates the session token and loads the session row.
func (m *SessionAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		claims, err := m.tokens.ValidateSessionToken(raw)
		if err != nil {
			http.Error(w, "Invalid or expired session token", http.StatusUnauthorized)
			return
		}

		session, reason, err := m.sessions.Resolve(r.Context(), raw)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if session == nil {
			http.Error(w, services.ReasonMessage(reason), http.StatusUnauthorized)
			return
		}

		// The claims and the row must agree on who this session belongs to.
		if session.ClientID != claims.ClientID || session.TenantID != claims.TenantID {
			http.Error(w, "Invalid session token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, session)
		ctx = context.WithValue(ctx, ClientIDKey, session.ClientID)
		ctx = context.WithValue(ctx, TenantIDKey, session.TenantID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromContext returns the authenticated session, or nil.
func SessionFromContext(ctx context.Context) *models.CustomerSession {
	session, _ := ctx.Value(SessionKey).(*models.CustomerSession)
	return session
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
