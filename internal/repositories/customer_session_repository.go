package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerSessionRepository struct {
	DB *pgxpool.Pool
}

func NewCustomerSessionRepository(db *pgxpool.Pool) *CustomerSessionRepository {
	return &CustomerSessionRepository{DB: db}
}

var _ services.CustomerSessionStore = (*CustomerSessionRepository)(nil)

const sessionCols = `
	id, session_token, tenant_id, client_id, is_verified, verified_at,
	verification_method, quote_ids, expires_at, revoked_at,
	last_activity_at, activity_count, origin_magic_link_id, created_at
`

func scanSession(row pgx.Row) (*models.CustomerSession, error) {
	var session models.CustomerSession
	err := row.Scan(
		&session.ID,
		&session.SessionToken,
		&session.TenantID,
		&session.ClientID,
		&session.IsVerified,
		&session.VerifiedAt,
		&session.VerificationMethod,
		&session.QuoteIDs,
		&session.ExpiresAt,
		&session.RevokedAt,
		&session.LastActivityAt,
		&session.ActivityCount,
		&session.OriginMagicLinkID,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts a new customer session
func (r *CustomerSessionRepository) Create(ctx context.Context, session *models.CustomerSession) error {
	query := `
		INSERT INTO customer_sessions(
			session_token, tenant_id, client_id, verification_method,
			quote_ids, expires_at, last_activity_at, activity_count,
			origin_magic_link_id)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	return r.DB.QueryRow(ctx, query,
		session.SessionToken,
		session.TenantID,
		session.ClientID,
		session.VerificationMethod,
		session.QuoteIDs,
		session.ExpiresAt,
		session.LastActivityAt,
		session.ActivityCount,
		session.OriginMagicLinkID,
	).Scan(&session.ID, &session.CreatedAt)
}

// GetByID retrieves a session by primary key
func (r *CustomerSessionRepository) GetByID(ctx context.Context, id int64) (*models.CustomerSession, error) {
	query := `SELECT ` + sessionCols + ` FROM customer_sessions WHERE id = $1`

	session, err := scanSession(r.DB.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetByToken retrieves a session by its signed token, or (nil, nil)
func (r *CustomerSessionRepository) GetByToken(ctx context.Context, token string) (*models.CustomerSession, error) {
	query := `SELECT ` + sessionCols + ` FROM customer_sessions WHERE session_token = $1`

	session, err := scanSession(r.DB.QueryRow(ctx, query, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// FindActiveByClient retrieves the most recent live session for a client
func (r *CustomerSessionRepository) FindActiveByClient(ctx context.Context, tenantID, clientID int64, now time.Time) (*models.CustomerSession, error) {
	query := `
		SELECT ` + sessionCols + `
		FROM customer_sessions
		WHERE tenant_id = $1 AND client_id = $2
		  AND revoked_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	session, err := scanSession(r.DB.QueryRow(ctx, query, tenantID, clientID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// SetQuoteIDs replaces the session's visible quote set
func (r *CustomerSessionRepository) SetQuoteIDs(ctx context.Context, id int64, quoteIDs []int64) error {
	query := `UPDATE customer_sessions SET quote_ids = $2 WHERE id = $1`
	_, err := r.DB.Exec(ctx, query, id, quoteIDs)
	return err
}

// MarkVerified records a successful OTP escalation
func (r *CustomerSessionRepository) MarkVerified(ctx context.Context, id int64, method string, quoteIDs []int64, now time.Time) error {
	query := `
		UPDATE customer_sessions
		SET is_verified = TRUE, verified_at = $2, verification_method = $3, quote_ids = $4
		WHERE id = $1
	`
	_, err := r.DB.Exec(ctx, query, id, now, method, quoteIDs)
	return err
}

// TouchActivity bumps the activity counter and timestamp
func (r *CustomerSessionRepository) TouchActivity(ctx context.Context, id int64, now time.Time) error {
	query := `
		UPDATE customer_sessions
		SET last_activity_at = $2, activity_count = activity_count + 1
		WHERE id = $1
	`
	_, err := r.DB.Exec(ctx, query, id, now)
	return err
}

// Revoke marks a session revoked; already-revoked sessions are left untouched
func (r *CustomerSessionRepository) Revoke(ctx context.Context, id int64, now time.Time) error {
	query := `UPDATE customer_sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	_, err := r.DB.Exec(ctx, query, id, now)
	return err
}

// RevokeAllForClient revokes every non-revoked session for a client
func (r *CustomerSessionRepository) RevokeAllForClient(ctx context.Context, tenantID, clientID int64, now time.Time) (int64, error) {
	query := `
		UPDATE customer_sessions SET revoked_at = $3
		WHERE tenant_id = $1 AND client_id = $2 AND revoked_at IS NULL
	`
	tag, err := r.DB.Exec(ctx, query, tenantID, clientID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByTenant returns all sessions for a tenant, newest first
func (r *CustomerSessionRepository) ListByTenant(ctx context.Context, tenantID int64) ([]*models.CustomerSession, error) {
	query := `SELECT ` + sessionCols + ` FROM customer_sessions WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.CustomerSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// ListRecentByClient returns a client's most recent sessions
func (r *CustomerSessionRepository) ListRecentByClient(ctx context.Context, tenantID, clientID int64, limit int) ([]*models.CustomerSession, error) {
	query := `
		SELECT ` + sessionCols + `
		FROM customer_sessions
		WHERE tenant_id = $1 AND client_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.DB.Query(ctx, query, tenantID, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.CustomerSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteExpiredBefore removes sessions whose expiry predates the retention cutoff
func (r *CustomerSessionRepository) DeleteExpiredBefore(ctx context.Context, tenantID int64, cutoff time.Time) (int64, error) {
	query := `DELETE FROM customer_sessions WHERE tenant_id = $1 AND expires_at < $2`
	tag, err := r.DB.Exec(ctx, query, tenantID, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
