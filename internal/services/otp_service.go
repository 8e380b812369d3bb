package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/auth"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/metrics"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"
)

const (
	OTPLength        = 6
	OTPExpiryMinutes = 10
	MaxOTPAttempts   = 3

	// At most 3 codes per client inside a sliding 5-minute window.
	OTPRequestLimit  = 3
	OTPRequestWindow = 5 * time.Minute
)

// OTPDeliverer dispatches a code to the customer. Implementations must not
// block the caller; delivery failures are logged, never surfaced.
type OTPDeliverer interface {
	DeliverOTP(method, target, code string, branding map[string]any)
}

// OTPRequestResult is the typed outcome of requesting a code.
type OTPRequestResult struct {
	OK      bool                    `json:"ok"`
	Reason  string                  `json:"reason,omitempty"`
	Message string                  `json:"message,omitempty"`
	OTP     *models.OTPVerification `json:"otp,omitempty"`
}

// OTPVerifyResult is the typed outcome of verifying a code.
type OTPVerifyResult struct {
	Verified          bool                    `json:"verified"`
	Reason            string                  `json:"reason,omitempty"`
	Message           string                  `json:"message,omitempty"`
	AttemptsRemaining int                     `json:"attempts_remaining,omitempty"`
	Session           *models.CustomerSession `json:"session,omitempty"`
}

// OTPService issues and verifies escalation codes. A successful
// verification is the single authorized path by which a session moves from
// single-quote to full-client visibility.
type OTPService struct {
	OTPs      OTPStore
	Sessions  CustomerSessionStore
	Clients   ClientStore
	Policy    *ExpiryPolicy
	Deliverer OTPDeliverer
	Activity  *ActivityLogger

	Now func() time.Time
}

func NewOTPService(otps OTPStore, sessions CustomerSessionStore, clients ClientStore, policy *ExpiryPolicy) *OTPService {
	return &OTPService{
		OTPs:     otps,
		Sessions: sessions,
		Clients:  clients,
		Policy:   policy,
		Now:      timeutil.Now,
	}
}

// SetDeliverer sets the delivery collaborator for issued codes.
func (s *OTPService) SetDeliverer(d OTPDeliverer) {
	s.Deliverer = d
}

// SetActivityLogger sets the audit logger for OTP events.
func (s *OTPService) SetActivityLogger(logger *ActivityLogger) {
	s.Activity = logger
}

// RequestOTP generates and persists a 6-digit code for the session and
// hands it to the delivery collaborator. The rate limit is a store-backed
// count; under concurrent requests it can be exceeded by a small margin,
// which the per-code attempt lockout still bounds.
func (s *OTPService) RequestOTP(ctx context.Context, sessionID int64, method, target, ip string) (*OTPRequestResult, error) {
	session, err := s.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("request otp: %w", err)
	}
	if session == nil {
		return &OTPRequestResult{Reason: ReasonSessionNotFound, Message: ReasonMessage(ReasonSessionNotFound)}, nil
	}

	now := s.Now()
	if session.IsRevoked() || session.IsExpired(now) {
		return &OTPRequestResult{Reason: ReasonInvalidSession, Message: ReasonMessage(ReasonInvalidSession)}, nil
	}

	recent, err := s.OTPs.CountRecentByClient(ctx, session.TenantID, session.ClientID, now.Add(-OTPRequestWindow))
	if err != nil {
		return nil, fmt.Errorf("count recent otps: %w", err)
	}
	if recent >= OTPRequestLimit {
		metrics.OTPRequests.WithLabelValues(ReasonRateLimited).Inc()
		s.Activity.Log(session.TenantID, session.ClientID, models.ActionOTPFailed, "rate limited", ip, "")
		return &OTPRequestResult{Reason: ReasonRateLimited, Message: ReasonMessage(ReasonRateLimited)}, nil
	}

	client, err := s.Clients.Get(ctx, session.TenantID, session.ClientID)
	if err != nil {
		return nil, fmt.Errorf("request otp: %w", err)
	}
	if target == "" {
		switch method {
		case models.DeliverySMS:
			target = client.Phone
		default:
			target = client.Email
		}
	}

	code, err := auth.GenerateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("request otp: %w", err)
	}

	otp := &models.OTPVerification{
		Code:              code,
		TenantID:          session.TenantID,
		ClientID:          session.ClientID,
		CustomerSessionID: session.ID,
		DeliveryMethod:    method,
		DeliveryTarget:    target,
		ExpiresAt:         now.Add(OTPExpiryMinutes * time.Minute),
	}
	if ip != "" {
		otp.IPAddress = &ip
	}

	if err := s.OTPs.Create(ctx, otp); err != nil {
		return nil, fmt.Errorf("create otp record: %w", err)
	}

	// Fire-and-forget dispatch; a delivery failure never rolls back the
	// OTP record.
	if s.Deliverer != nil {
		branding := map[string]any{}
		if settings, err := s.Policy.Settings(ctx, session.TenantID); err == nil {
			branding = settings.Branding
		}
		s.Deliverer.DeliverOTP(method, target, code, branding)
	}

	metrics.OTPRequests.WithLabelValues("ok").Inc()
	s.Activity.Log(session.TenantID, session.ClientID, models.ActionOTPRequested,
		fmt.Sprintf("otp %d sent via %s", otp.ID, method), ip, "")

	return &OTPRequestResult{OK: true, OTP: otp}, nil
}

// VerifyOTP checks a code against the session's most recent OTP. Failure
// ordering: no code on record, then expiry, then prior consumption, then
// lockout, then code mismatch. Three wrong codes lock the OTP permanently;
// the correct code no longer works afterwards. On success the session is
// marked verified and its quote set replaced with every quote belonging to
// the client.
func (s *OTPService) VerifyOTP(ctx context.Context, sessionID int64, code, ip string) (*OTPVerifyResult, error) {
	fail := func(tenantID, clientID int64, reason, details string) *OTPVerifyResult {
		metrics.OTPVerifications.WithLabelValues(reason).Inc()
		s.Activity.Log(tenantID, clientID, models.ActionOTPFailed, details, ip, "")
		return &OTPVerifyResult{Reason: reason, Message: OTPReasonMessage(reason)}
	}

	session, err := s.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	if session == nil {
		return &OTPVerifyResult{Reason: ReasonSessionNotFound, Message: ReasonMessage(ReasonSessionNotFound)}, nil
	}

	otp, err := s.OTPs.GetLatestBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	if otp == nil {
		return fail(session.TenantID, session.ClientID, ReasonInvalidCode, "no otp on record"), nil
	}

	now := s.Now()
	if otp.IsExpired(now) {
		return fail(session.TenantID, session.ClientID, ReasonExpired, fmt.Sprintf("otp %d expired", otp.ID)), nil
	}
	if otp.IsConsumed() {
		return fail(session.TenantID, session.ClientID, ReasonAlreadyUsed, fmt.Sprintf("otp %d already used", otp.ID)), nil
	}
	if otp.IsLocked() || otp.AttemptCount >= MaxOTPAttempts {
		return fail(session.TenantID, session.ClientID, ReasonLocked, fmt.Sprintf("otp %d locked", otp.ID)), nil
	}

	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		if err := s.OTPs.IncrementAttempts(ctx, otp.ID); err != nil {
			return nil, fmt.Errorf("increment otp %d attempts: %w", otp.ID, err)
		}
		otp.AttemptCount++

		remaining := MaxOTPAttempts - otp.AttemptCount
		if remaining <= 0 {
			if err := s.OTPs.MarkLocked(ctx, otp.ID, now); err != nil {
				return nil, fmt.Errorf("lock otp %d: %w", otp.ID, err)
			}
			return fail(session.TenantID, session.ClientID, ReasonLocked,
				fmt.Sprintf("otp %d locked after %d attempts", otp.ID, otp.AttemptCount)), nil
		}

		result := fail(session.TenantID, session.ClientID, ReasonInvalidCode,
			fmt.Sprintf("otp %d wrong code, %d attempts left", otp.ID, remaining))
		result.AttemptsRemaining = remaining
		return result, nil
	}

	if err := s.OTPs.MarkVerified(ctx, otp.ID, now); err != nil {
		return nil, fmt.Errorf("consume otp %d: %w", otp.ID, err)
	}

	// Escalate: the session now sees every quote the client owns.
	quoteIDs, err := s.Clients.ListQuoteIDs(ctx, session.TenantID, session.ClientID)
	if err != nil {
		return nil, fmt.Errorf("list client quotes: %w", err)
	}
	if err := s.Sessions.MarkVerified(ctx, session.ID, otp.DeliveryMethod, quoteIDs, now); err != nil {
		return nil, fmt.Errorf("verify session %d: %w", session.ID, err)
	}

	session.IsVerified = true
	session.VerifiedAt = &now
	session.VerificationMethod = otp.DeliveryMethod
	session.QuoteIDs = quoteIDs

	metrics.OTPVerifications.WithLabelValues("ok").Inc()
	s.Activity.Log(session.TenantID, session.ClientID, models.ActionOTPVerified,
		fmt.Sprintf("session %d verified via %s", session.ID, otp.DeliveryMethod), ip, "")

	return &OTPVerifyResult{Verified: true, Session: session}, nil
}
