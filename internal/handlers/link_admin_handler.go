package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/notify"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/pkg/utils"

	"github.com/gorilla/mux"
)

// LinkAdminHandler exposes the contractor-facing control surface: link and
// session management, bulk operations, analytics and the manual cleanup
// trigger. Routes are mounted behind the platform's staff gateway.
type LinkAdminHandler struct {
	LinkService  *services.LinkService
	AdminService *services.LinkAdminService
	Revocation   *services.RevocationService
	Cleanup      *services.CleanupService
	Policy       *services.ExpiryPolicy
	Dispatcher   *notify.Dispatcher
}

func NewLinkAdminHandler(
	linkService *services.LinkService,
	adminService *services.LinkAdminService,
	revocation *services.RevocationService,
	cleanup *services.CleanupService,
	policy *services.ExpiryPolicy,
	dispatcher *notify.Dispatcher,
) *LinkAdminHandler {
	return &LinkAdminHandler{
		LinkService:  linkService,
		AdminService: adminService,
		Revocation:   revocation,
		Cleanup:      cleanup,
		Policy:       policy,
		Dispatcher:   dispatcher,
	}
}

// IssueLink creates or reuses a portal link and hands it to the delivery
// collaborator.
func (h *LinkAdminHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	var req models.IssueLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TenantID == 0 || req.ClientID == 0 {
		utils.Error(w, http.StatusBadRequest, "tenant_id and client_id are required")
		return
	}
	switch req.Purpose {
	case models.PurposePortalAccess, models.PurposeQuoteView, models.PurposePayment:
	default:
		utils.Error(w, http.StatusBadRequest, "invalid purpose")
		return
	}

	result, err := h.LinkService.Issue(r.Context(), services.IssueLinkInput{
		TenantID:            req.TenantID,
		ClientID:            req.ClientID,
		QuoteID:             req.QuoteID,
		Email:               req.Email,
		Phone:               req.Phone,
		Purpose:             req.Purpose,
		ExpiryDays:          req.ExpiryDays,
		IsSingleUse:         req.IsSingleUse,
		AllowMultiJobAccess: req.AllowMultiJobAccess,
		Metadata:            req.Metadata,
	})
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			utils.Error(w, http.StatusNotFound, "Client not found")
			return
		}
		utils.Error(w, http.StatusInternalServerError, "Failed to issue link")
		return
	}

	// Delivery is fire-and-forget; a notification failure never unwinds
	// the issued link.
	branding := map[string]any{}
	if settings, err := h.Policy.Settings(r.Context(), req.TenantID); err == nil {
		branding = settings.Branding
	}
	h.Dispatcher.DeliverMagicLink(result.Link, result.URL, branding)

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	utils.JSON(w, status, result)
}

// ListLinks lists a tenant's links with an optional status filter.
func (h *LinkAdminHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := queryInt64(r, "tenant_id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", models.StatusActive, models.StatusExpired, models.StatusExpiringSoon:
	default:
		utils.Error(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	links, err := h.AdminService.ListLinks(r.Context(), tenantID, status)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to list links")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"links": links, "count": len(links)})
}

// GetLink returns link detail with recent session history.
func (h *LinkAdminHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid link id")
		return
	}

	detail, err := h.AdminService.GetLinkDetail(r.Context(), id)
	if err != nil {
		utils.Error(w, http.StatusNotFound, "Link not found")
		return
	}
	utils.JSON(w, http.StatusOK, detail)
}

// ExtendLink pushes a link's expiry out by N days.
func (h *LinkAdminHandler) ExtendLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid link id")
		return
	}

	var req models.ExtendLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Days <= 0 {
		utils.Error(w, http.StatusBadRequest, "days must be a positive number")
		return
	}

	link, err := h.AdminService.ExtendLink(r.Context(), id, req.Days)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to extend link")
		return
	}
	utils.JSON(w, http.StatusOK, link)
}

// RegenerateLink revokes a link and issues a replacement with a new token.
func (h *LinkAdminHandler) RegenerateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid link id")
		return
	}

	result, err := h.AdminService.RegenerateLink(r.Context(), id)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to regenerate link")
		return
	}
	utils.JSON(w, http.StatusCreated, result)
}

// DeactivateLink revokes a link. Safe to repeat.
func (h *LinkAdminHandler) DeactivateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid link id")
		return
	}

	if err := h.Revocation.RevokeLink(r.Context(), id); err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to deactivate link")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// BulkExtend extends every expiring-soon link for a tenant.
func (h *LinkAdminHandler) BulkExtend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID int64 `json:"tenant_id"`
		Days     int   `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TenantID == 0 || req.Days <= 0 {
		utils.Error(w, http.StatusBadRequest, "tenant_id and positive days are required")
		return
	}

	extended, failed, err := h.AdminService.BulkExtendExpiring(r.Context(), req.TenantID, req.Days)
	if err != nil && extended == 0 {
		utils.Error(w, http.StatusInternalServerError, "Failed to extend links")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"extended": extended, "failed": failed})
}

// ListSessions lists a tenant's sessions with an optional status filter.
func (h *LinkAdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := queryInt64(r, "tenant_id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", models.StatusActive, models.StatusExpired, models.StatusExpiringSoon:
	default:
		utils.Error(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	sessions, err := h.AdminService.ListSessions(r.Context(), tenantID, status)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

// DeactivateSession revokes a session. Safe to repeat.
func (h *LinkAdminHandler) DeactivateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.Revocation.RevokeSession(r.Context(), id); err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to deactivate session")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// RevokeAllForClient is the emergency lockout for a client.
func (h *LinkAdminHandler) RevokeAllForClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathInt64(r, "id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid client id")
		return
	}
	tenantID, ok := queryInt64(r, "tenant_id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	sessions, links, err := h.Revocation.RevokeAllForClient(r.Context(), tenantID, clientID)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to revoke client access")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"revoked_sessions": sessions,
		"revoked_links":    links,
	})
}

// TriggerCleanup runs a manual retention sweep.
func (h *LinkAdminHandler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	// Detached from the request context so the sweep survives the response.
	go h.Cleanup.Sweep(context.Background())
	utils.JSON(w, http.StatusAccepted, map[string]string{"status": "cleanup started"})
}

// ExpiryAnalytics returns counts of links expiring within standard horizons.
func (h *LinkAdminHandler) ExpiryAnalytics(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := queryInt64(r, "tenant_id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	analytics, err := h.AdminService.GetExpiryAnalytics(r.Context(), tenantID)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}
	utils.JSON(w, http.StatusOK, analytics)
}

// ListRecentLogins returns recent OTP verification records for audit.
func (h *LinkAdminHandler) ListRecentLogins(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := queryInt64(r, "tenant_id")
	if !ok {
		utils.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	limit := 0
	if n, ok := queryInt64(r, "limit"); ok {
		limit = int(n)
	}

	logins, err := h.AdminService.ListRecentLogins(r.Context(), tenantID, limit)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to list logins")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"logins": logins, "count": len(logins)})
}

func pathInt64(r *http.Request, key string) (int64, bool) {
	raw := mux.Vars(r)[key]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt64(r *http.Request, key string) (int64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
