package repositories

import (
	"context"
	"errors"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientRepository reads clients and their quote ownership. Client and
// quote CRUD belong to other parts of the product; the portal only needs
// lookups.
type ClientRepository struct {
	DB *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{DB: db}
}

var _ services.ClientStore = (*ClientRepository)(nil)

// Get retrieves a client within a tenant. Contact columns are nullable;
// a missing email or phone comes back as the empty string.
func (r *ClientRepository) Get(ctx context.Context, tenantID, clientID int64) (*models.Client, error) {
	query := `
		SELECT id, tenant_id, name, COALESCE(email, ''), COALESCE(phone, ''), created_at
		FROM clients
		WHERE id = $1 AND tenant_id = $2
	`

	var client models.Client
	err := r.DB.QueryRow(ctx, query, clientID, tenantID).Scan(
		&client.ID,
		&client.TenantID,
		&client.Name,
		&client.Email,
		&client.Phone,
		&client.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, services.ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// ListQuoteIDs returns every quote identifier belonging to the client
func (r *ClientRepository) ListQuoteIDs(ctx context.Context, tenantID, clientID int64) ([]int64, error) {
	query := `
		SELECT id
		FROM quotes
		WHERE tenant_id = $1 AND client_id = $2
		ORDER BY id
	`

	rows, err := r.DB.Query(ctx, query, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quoteIDs := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		quoteIDs = append(quoteIDs, id)
	}
	return quoteIDs, rows.Err()
}
