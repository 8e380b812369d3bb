package http

import (
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/handlers"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	portalHandler *handlers.PortalHandler,
	adminHandler *handlers.LinkAdminHandler,
	healthHandler *handlers.HealthHandler,
	sessionAuth *middleware.SessionAuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.PanicRecovery)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.MetricsMiddleware)

	// Health and metrics
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public portal entry - the only route that can create a session
	r.HandleFunc("/portal/access/{token}", portalHandler.AccessLink).Methods("GET")

	// Portal routes behind a customer session token
	portalAPI := r.PathPrefix("/portal").Subrouter()
	portalAPI.Use(sessionAuth.Authenticate)
	portalAPI.HandleFunc("/session", portalHandler.GetSession).Methods("GET")
	portalAPI.HandleFunc("/otp/request", portalHandler.RequestOTP).Methods("POST")
	portalAPI.HandleFunc("/otp/verify", portalHandler.VerifyOTP).Methods("POST")

	// Admin control surface - mounted behind the platform's staff gateway
	adminAPI := r.PathPrefix("/api/portal").Subrouter()
	adminAPI.HandleFunc("/links", adminHandler.IssueLink).Methods("POST")
	adminAPI.HandleFunc("/links", adminHandler.ListLinks).Methods("GET")
	adminAPI.HandleFunc("/links/bulk-extend", adminHandler.BulkExtend).Methods("POST")
	adminAPI.HandleFunc("/links/{id}", adminHandler.GetLink).Methods("GET")
	adminAPI.HandleFunc("/links/{id}", adminHandler.DeactivateLink).Methods("DELETE")
	adminAPI.HandleFunc("/links/{id}/extend", adminHandler.ExtendLink).Methods("PATCH")
	adminAPI.HandleFunc("/links/{id}/regenerate", adminHandler.RegenerateLink).Methods("POST")
	adminAPI.HandleFunc("/sessions", adminHandler.ListSessions).Methods("GET")
	adminAPI.HandleFunc("/sessions/{id}", adminHandler.DeactivateSession).Methods("DELETE")
	adminAPI.HandleFunc("/clients/{id}/revoke-all", adminHandler.RevokeAllForClient).Methods("POST")
	adminAPI.HandleFunc("/cleanup", adminHandler.TriggerCleanup).Methods("POST")
	adminAPI.HandleFunc("/analytics/expiry", adminHandler.ExpiryAnalytics).Methods("GET")
	adminAPI.HandleFunc("/logins", adminHandler.ListRecentLogins).Methods("GET")

	return r
}
