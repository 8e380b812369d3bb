package repositories

import (
	"context"
	"errors"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantRepository struct {
	DB *pgxpool.Pool
}

func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{DB: db}
}

var _ services.TenantStore = (*TenantRepository)(nil)

// GetPortalSettings reads a tenant's portal configuration
func (r *TenantRepository) GetPortalSettings(ctx context.Context, tenantID int64) (*models.TenantPortalSettings, error) {
	query := `
		SELECT id, default_expiry_days, max_expiry_days, auto_cleanup_enabled,
		       auto_cleanup_days, require_otp_for_multi_job, branding
		FROM tenants
		WHERE id = $1
	`

	var settings models.TenantPortalSettings
	err := r.DB.QueryRow(ctx, query, tenantID).Scan(
		&settings.TenantID,
		&settings.DefaultExpiryDays,
		&settings.MaxExpiryDays,
		&settings.AutoCleanupEnabled,
		&settings.AutoCleanupDays,
		&settings.RequireOTPForMultiJob,
		&settings.Branding,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, services.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// ListTenantIDs returns every tenant id, for the cleanup sweep
func (r *TenantRepository) ListTenantIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.DB.Query(ctx, `SELECT id FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
