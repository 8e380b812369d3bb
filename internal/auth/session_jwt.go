package auth

import (
	"errors"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenType tags portal session tokens so they can never be confused
// with staff tokens signed with the same secret.
const SessionTokenType = "customer_session"

// SessionClaims are the claims carried by a portal session token. The JWT
// expiry is advisory; the authoritative expiry is the customer_sessions row.
type SessionClaims struct {
	Type     string `json:"type"`
	ClientID int64  `json:"client_id"`
	TenantID int64  `json:"tenant_id"`
	jwt.RegisteredClaims
}

// SessionTokenManager signs and verifies portal session tokens.
type SessionTokenManager struct {
	secret      []byte
	issuer      string
	sessionDays int

	Now func() time.Time
}

func NewSessionTokenManager(secret, issuer string, sessionDays int) *SessionTokenManager {
	if sessionDays <= 0 {
		sessionDays = 90
	}
	return &SessionTokenManager{
		secret:      []byte(secret),
		issuer:      issuer,
		sessionDays: sessionDays,
		Now:         timeutil.Now,
	}
}

// GenerateSessionToken mints a signed session credential bound to a client
// within a tenant. The full claim set is built once before signing.
func (m *SessionTokenManager) GenerateSessionToken(clientID, tenantID int64) (string, error) {
	now := m.Now()
	claims := &SessionClaims{
		Type:     SessionTokenType,
		ClientID: clientID,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(timeutil.Days(m.sessionDays))),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateSessionToken verifies the signature and shape of a session token.
// It is CPU-only and does not consult the store; callers still need a store
// read to honour revocation.
func (m *SessionTokenManager) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Type != SessionTokenType {
		return nil, errors.New("not a customer session token")
	}

	return claims, nil
}
