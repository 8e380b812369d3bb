package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/middleware"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/pkg/utils"

	"github.com/gorilla/mux"
)

// PortalHandler serves the customer-facing portal entry and OTP escalation
// routes.
type PortalHandler struct {
	LinkService *services.LinkService
	OTPService  *services.OTPService
}

func NewPortalHandler(linkService *services.LinkService, otpService *services.OTPService) *PortalHandler {
	return &PortalHandler{
		LinkService: linkService,
		OTPService:  otpService,
	}
}

// AccessLink consumes a magic link token and returns the portal session.
// Validation failures come back as a reason code plus message, never a 500.
func (h *PortalHandler) AccessLink(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	result, err := h.LinkService.Validate(r.Context(), token, clientIP(r), r.UserAgent())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !result.Valid {
		utils.JSON(w, http.StatusUnauthorized, map[string]any{
			"valid":   false,
			"reason":  result.Reason,
			"message": result.Message,
		})
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"valid":         true,
		"session_token": result.Session.SessionToken,
		"session":       result.Session,
		"purpose":       result.Link.Purpose,
		"quote_ids":     result.Session.QuoteIDs,
	})
}

// RequestOTP issues an escalation code for the authenticated session.
func (h *PortalHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		utils.Error(w, http.StatusUnauthorized, "No active session")
		return
	}

	var req models.RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Method == "" {
		req.Method = models.DeliveryEmail
	}
	if req.Method != models.DeliveryEmail && req.Method != models.DeliverySMS {
		utils.Error(w, http.StatusBadRequest, "delivery method must be email or sms")
		return
	}

	result, err := h.OTPService.RequestOTP(r.Context(), session.ID, req.Method, req.Target, clientIP(r))
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !result.OK {
		status := http.StatusUnauthorized
		if result.Reason == services.ReasonRateLimited {
			status = http.StatusTooManyRequests
		}
		utils.JSON(w, status, map[string]any{
			"ok":      false,
			"reason":  result.Reason,
			"message": result.Message,
		})
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"expires_at": result.OTP.ExpiresAt,
		"method":     result.OTP.DeliveryMethod,
	})
}

// VerifyOTP verifies a code and escalates the session on success.
func (h *PortalHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		utils.Error(w, http.StatusUnauthorized, "No active session")
		return
	}

	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.OTPService.VerifyOTP(r.Context(), session.ID, req.Code, clientIP(r))
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !result.Verified {
		utils.JSON(w, http.StatusUnauthorized, map[string]any{
			"verified":           false,
			"reason":             result.Reason,
			"message":            result.Message,
			"attempts_remaining": result.AttemptsRemaining,
		})
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"verified":  true,
		"session":   result.Session,
		"quote_ids": result.Session.QuoteIDs,
	})
}

// GetSession returns the authenticated session for portal frontend boot.
func (h *PortalHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		utils.Error(w, http.StatusUnauthorized, "No active session")
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

// clientIP extracts the requester IP, preferring the forwarded header set
// by the ingress.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
