package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"

	"github.com/redis/go-redis/v9"
)

// Tenant portal settings are read on every link issuance, so they are
// cached with a short TTL. A missing or failed Redis is a cache miss, never
// an error.
const (
	settingsKeyFmt = "portal:settings:%d"
	settingsTTL    = 5 * time.Minute
)

var client *redis.Client

// Init initializes the Redis connection
func Init() error {
	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis" // fallback to service name
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// GetPortalSettings returns cached tenant portal settings, or (nil, false)
// on a miss.
func GetPortalSettings(ctx context.Context, tenantID int64) (*models.TenantPortalSettings, bool) {
	if client == nil {
		return nil, false
	}

	raw, err := client.Get(ctx, fmt.Sprintf(settingsKeyFmt, tenantID)).Bytes()
	if err != nil {
		return nil, false
	}

	var settings models.TenantPortalSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, false
	}
	return &settings, true
}

// SetPortalSettings caches tenant portal settings. Failures are ignored.
func SetPortalSettings(ctx context.Context, settings *models.TenantPortalSettings) {
	if client == nil || settings == nil {
		return
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return
	}
	client.Set(ctx, fmt.Sprintf(settingsKeyFmt, settings.TenantID), raw, settingsTTL)
}

// InvalidatePortalSettings drops the cached settings for a tenant, used when
// an admin updates tenant configuration.
func InvalidatePortalSettings(ctx context.Context, tenantID int64) {
	if client == nil {
		return
	}
	client.Del(ctx, fmt.Sprintf(settingsKeyFmt, tenantID))
}
