package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/auth"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/cache"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/config"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/database"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/db"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/handlers"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/health"
	httpserver "github.com/Tiers-Limited/Cadence-Quote-sub008/internal/http"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/middleware"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/notify"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/repositories"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/services"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Connect to PostgreSQL
	pool := db.Connect(cfg)
	defer pool.Close()

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (tenant settings will be read from DB)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Run database migrations
	log.Println("Running database migrations...")
	migrator := database.NewMigrator(pool, "migrations")
	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.RunMigrations(migrateCtx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize health checker
	healthChecker := health.NewHealthChecker(pool)

	// Initialize repositories
	linkRepo := repositories.NewMagicLinkRepository(pool)
	sessionRepo := repositories.NewCustomerSessionRepository(pool)
	otpRepo := repositories.NewOTPRepository(pool)
	clientRepo := repositories.NewClientRepository(pool)
	tenantRepo := repositories.NewTenantRepository(pool)
	activityRepo := repositories.NewActivityLogRepository(pool)

	// Notification providers
	emailService := notify.NewHTTPEmailService(cfg.Notify.EmailAPIKey, cfg.Notify.EmailFrom, cfg.Notify.EmailEndpoint)
	smsService := notify.NewFast2SMSService(cfg.Notify.SMSAPIKey, cfg.Notify.SMSSenderID)
	dispatcher := notify.NewDispatcher(emailService, smsService)

	// Initialize services
	tokenManager := auth.NewSessionTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.SessionDays)
	activityLogger := services.NewActivityLogger(activityRepo)
	policy := services.NewExpiryPolicy(tenantRepo)

	sessionService := services.NewSessionService(sessionRepo, tokenManager)
	sessionService.SetActivityLogger(activityLogger)

	linkService := services.NewLinkService(linkRepo, clientRepo, policy, sessionService, cfg.Portal.BaseURL)
	linkService.SetActivityLogger(activityLogger)

	otpService := services.NewOTPService(otpRepo, sessionRepo, clientRepo, policy)
	otpService.SetDeliverer(dispatcher)
	otpService.SetActivityLogger(activityLogger)

	revocationService := services.NewRevocationService(linkRepo, sessionRepo)
	revocationService.SetActivityLogger(activityLogger)

	adminService := services.NewLinkAdminService(linkRepo, sessionRepo, otpRepo, policy, linkService, revocationService)

	cleanupInterval := time.Duration(cfg.Cleanup.IntervalMinutes) * time.Minute
	cleanupService := services.NewCleanupService(linkRepo, sessionRepo, otpRepo, tenantRepo, policy, cleanupInterval)
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go cleanupService.Run(cleanupCtx)
	log.Printf("[Cleanup] Scheduler started (interval: %s)", cleanupService.Interval)

	// Initialize handlers and middleware
	portalHandler := handlers.NewPortalHandler(linkService, otpService)
	adminHandler := handlers.NewLinkAdminHandler(linkService, adminService, revocationService, cleanupService, policy, dispatcher)
	healthHandler := handlers.NewHealthHandler(healthChecker)
	sessionAuth := middleware.NewSessionAuthMiddleware(tokenManager, sessionService)
	corsMiddleware := middleware.NewCORS(cfg)

	router := httpserver.NewRouter(portalHandler, adminHandler, healthHandler, sessionAuth)
	handler := corsMiddleware(router)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		log.Printf("Portal access server running on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Drain in-flight requests on SIGINT/SIGTERM before exiting.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")
	stopCleanup()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
