package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The "one live multi-use link per (tenant, client, purpose)" invariant is
// enforced by the partial unique index idx_magic_links_active_tuple; a
// violation surfaces as services.ErrDuplicateActiveLink and the issuer
// retries with reuse.

type MagicLinkRepository struct {
	DB *pgxpool.Pool
}

func NewMagicLinkRepository(db *pgxpool.Pool) *MagicLinkRepository {
	return &MagicLinkRepository{DB: db}
}

var _ services.MagicLinkStore = (*MagicLinkRepository)(nil)

const magicLinkCols = `
	id, token, tenant_id, client_id, quote_id, email, phone, purpose,
	expires_at, is_single_use, used_at, last_accessed_at, access_count,
	allow_multi_job_access, revoked_at, metadata, created_at, updated_at
`

func scanMagicLink(row pgx.Row) (*models.MagicLink, error) {
	var link models.MagicLink
	err := row.Scan(
		&link.ID,
		&link.Token,
		&link.TenantID,
		&link.ClientID,
		&link.QuoteID,
		&link.Email,
		&link.Phone,
		&link.Purpose,
		&link.ExpiresAt,
		&link.IsSingleUse,
		&link.UsedAt,
		&link.LastAccessedAt,
		&link.AccessCount,
		&link.AllowMultiJobAccess,
		&link.RevokedAt,
		&link.Metadata,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Create inserts a new magic link
func (r *MagicLinkRepository) Create(ctx context.Context, link *models.MagicLink) error {
	query := `
		INSERT INTO magic_links(
			token, tenant_id, client_id, quote_id, email, phone, purpose,
			expires_at, is_single_use, allow_multi_job_access, metadata)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.DB.QueryRow(ctx, query,
		link.Token,
		link.TenantID,
		link.ClientID,
		link.QuoteID,
		link.Email,
		link.Phone,
		link.Purpose,
		link.ExpiresAt,
		link.IsSingleUse,
		link.AllowMultiJobAccess,
		link.Metadata,
	).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return services.ErrDuplicateActiveLink
	}
	return err
}

// GetByID retrieves a link by primary key
func (r *MagicLinkRepository) GetByID(ctx context.Context, id int64) (*models.MagicLink, error) {
	query := `SELECT ` + magicLinkCols + ` FROM magic_links WHERE id = $1`
	return scanMagicLink(r.DB.QueryRow(ctx, query, id))
}

// GetByToken retrieves a link by its opaque token (exact match only).
// Returns (nil, nil) when no link matches.
func (r *MagicLinkRepository) GetByToken(ctx context.Context, token string) (*models.MagicLink, error) {
	query := `SELECT ` + magicLinkCols + ` FROM magic_links WHERE token = $1`

	link, err := scanMagicLink(r.DB.QueryRow(ctx, query, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// FindCurrent retrieves the most recent non-revoked multi-use link for the
// tuple regardless of expiry, or (nil, nil).
func (r *MagicLinkRepository) FindCurrent(ctx context.Context, tenantID, clientID int64, purpose string) (*models.MagicLink, error) {
	query := `
		SELECT ` + magicLinkCols + `
		FROM magic_links
		WHERE tenant_id = $1 AND client_id = $2 AND purpose = $3
		  AND is_single_use = FALSE AND revoked_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	link, err := scanMagicLink(r.DB.QueryRow(ctx, query, tenantID, clientID, purpose))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// Update persists reuse-time changes. The token column is never touched.
func (r *MagicLinkRepository) Update(ctx context.Context, link *models.MagicLink) error {
	query := `
		UPDATE magic_links
		SET quote_id = $2, email = $3, phone = $4, expires_at = $5,
		    allow_multi_job_access = $6, metadata = $7, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.DB.Exec(ctx, query,
		link.ID,
		link.QuoteID,
		link.Email,
		link.Phone,
		link.ExpiresAt,
		link.AllowMultiJobAccess,
		link.Metadata,
	)
	return err
}

// MarkUsed records a successful validation
func (r *MagicLinkRepository) MarkUsed(ctx context.Context, id int64, now time.Time) error {
	query := `
		UPDATE magic_links
		SET access_count = access_count + 1,
		    used_at = COALESCE(used_at, $2),
		    last_accessed_at = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.DB.Exec(ctx, query, id, now)
	return err
}

// Revoke marks a link revoked; already-revoked links are left untouched
func (r *MagicLinkRepository) Revoke(ctx context.Context, id int64, now time.Time) error {
	query := `UPDATE magic_links SET revoked_at = $2, updated_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	_, err := r.DB.Exec(ctx, query, id, now)
	return err
}

// RevokeAllForClient revokes every non-revoked link for a client
func (r *MagicLinkRepository) RevokeAllForClient(ctx context.Context, tenantID, clientID int64, now time.Time) (int64, error) {
	query := `
		UPDATE magic_links SET revoked_at = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND client_id = $2 AND revoked_at IS NULL
	`
	tag, err := r.DB.Exec(ctx, query, tenantID, clientID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByTenant returns all links for a tenant, newest first
func (r *MagicLinkRepository) ListByTenant(ctx context.Context, tenantID int64) ([]*models.MagicLink, error) {
	query := `SELECT ` + magicLinkCols + ` FROM magic_links WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.MagicLink
	for rows.Next() {
		link, err := scanMagicLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// ListExpiringBetween returns live links whose expiry falls in [from, to)
func (r *MagicLinkRepository) ListExpiringBetween(ctx context.Context, tenantID int64, from, to time.Time) ([]*models.MagicLink, error) {
	query := `
		SELECT ` + magicLinkCols + `
		FROM magic_links
		WHERE tenant_id = $1 AND revoked_at IS NULL
		  AND expires_at >= $2 AND expires_at < $3
		ORDER BY expires_at ASC
	`

	rows, err := r.DB.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.MagicLink
	for rows.Next() {
		link, err := scanMagicLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// ExtendExpiry sets a new expiry timestamp
func (r *MagicLinkRepository) ExtendExpiry(ctx context.Context, id int64, expiresAt time.Time) error {
	query := `UPDATE magic_links SET expires_at = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.DB.Exec(ctx, query, id, expiresAt)
	return err
}

// DeleteExpiredBefore removes links whose expiry predates the retention cutoff
func (r *MagicLinkRepository) DeleteExpiredBefore(ctx context.Context, tenantID int64, cutoff time.Time) (int64, error) {
	query := `DELETE FROM magic_links WHERE tenant_id = $1 AND expires_at < $2`
	tag, err := r.DB.Exec(ctx, query, tenantID, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
