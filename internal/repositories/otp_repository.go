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

type OTPRepository struct {
	DB *pgxpool.Pool
}

func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{DB: db}
}

var _ services.OTPStore = (*OTPRepository)(nil)

const otpCols = `
	id, code, tenant_id, client_id, customer_session_id, delivery_method,
	delivery_target, expires_at, verified_at, attempt_count, locked_at,
	ip_address, created_at
`

func scanOTP(row pgx.Row) (*models.OTPVerification, error) {
	var otp models.OTPVerification
	err := row.Scan(
		&otp.ID,
		&otp.Code,
		&otp.TenantID,
		&otp.ClientID,
		&otp.CustomerSessionID,
		&otp.DeliveryMethod,
		&otp.DeliveryTarget,
		&otp.ExpiresAt,
		&otp.VerifiedAt,
		&otp.AttemptCount,
		&otp.LockedAt,
		&otp.IPAddress,
		&otp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// Create inserts a new OTP record
func (r *OTPRepository) Create(ctx context.Context, otp *models.OTPVerification) error {
	query := `
		INSERT INTO otp_verifications(
			code, tenant_id, client_id, customer_session_id,
			delivery_method, delivery_target, expires_at, ip_address)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	return r.DB.QueryRow(ctx, query,
		otp.Code,
		otp.TenantID,
		otp.ClientID,
		otp.CustomerSessionID,
		otp.DeliveryMethod,
		otp.DeliveryTarget,
		otp.ExpiresAt,
		otp.IPAddress,
	).Scan(&otp.ID, &otp.CreatedAt)
}

// GetLatestBySession retrieves the most recent OTP for a session, consumed
// or not, or (nil, nil)
func (r *OTPRepository) GetLatestBySession(ctx context.Context, sessionID int64) (*models.OTPVerification, error) {
	query := `
		SELECT ` + otpCols + `
		FROM otp_verifications
		WHERE customer_session_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	otp, err := scanOTP(r.DB.QueryRow(ctx, query, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return otp, nil
}

// IncrementAttempts bumps the verification attempt counter
func (r *OTPRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `UPDATE otp_verifications SET attempt_count = attempt_count + 1 WHERE id = $1`
	_, err := r.DB.Exec(ctx, query, id)
	return err
}

// MarkVerified consumes an OTP after a successful check
func (r *OTPRepository) MarkVerified(ctx context.Context, id int64, now time.Time) error {
	query := `UPDATE otp_verifications SET verified_at = $2 WHERE id = $1`
	_, err := r.DB.Exec(ctx, query, id, now)
	return err
}

// MarkLocked permanently invalidates an OTP after too many attempts
func (r *OTPRepository) MarkLocked(ctx context.Context, id int64, now time.Time) error {
	query := `UPDATE otp_verifications SET locked_at = $2 WHERE id = $1 AND locked_at IS NULL`
	_, err := r.DB.Exec(ctx, query, id, now)
	return err
}

// CountRecentByClient counts OTP requests for a client since the given time
func (r *OTPRepository) CountRecentByClient(ctx context.Context, tenantID, clientID int64, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM otp_verifications
		WHERE tenant_id = $1 AND client_id = $2 AND created_at > $3
	`

	var count int
	err := r.DB.QueryRow(ctx, query, tenantID, clientID, since).Scan(&count)
	return count, err
}

// ListRecentByTenant returns recent verified OTP records for the admin
// login view. Pending and failed codes are not logins.
func (r *OTPRepository) ListRecentByTenant(ctx context.Context, tenantID int64, limit int) ([]*models.OTPVerification, error) {
	query := `
		SELECT ` + otpCols + `
		FROM otp_verifications
		WHERE tenant_id = $1 AND verified_at IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.DB.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var otps []*models.OTPVerification
	for rows.Next() {
		otp, err := scanOTP(rows)
		if err != nil {
			return nil, err
		}
		otps = append(otps, otp)
	}
	return otps, rows.Err()
}

// DeleteCreatedBefore removes old OTP records (run by the cleanup sweep)
func (r *OTPRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM otp_verifications WHERE created_at < $1`
	tag, err := r.DB.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
