package repositories

import (
	"context"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityLogRepository struct {
	DB *pgxpool.Pool
}

func NewActivityLogRepository(db *pgxpool.Pool) *ActivityLogRepository {
	return &ActivityLogRepository{DB: db}
}

var _ services.ActivityLogStore = (*ActivityLogRepository)(nil)

// Create inserts a portal activity record
func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.PortalActivityLog) error {
	query := `
		INSERT INTO portal_activity_logs(tenant_id, client_id, action, details, ip_address, user_agent)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	return r.DB.QueryRow(ctx, query,
		entry.TenantID,
		entry.ClientID,
		entry.Action,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.ID, &entry.CreatedAt)
}
