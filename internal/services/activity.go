package services

import (
	"context"
	"log"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
)

// ActivityLogger writes portal audit records without ever failing the
// operation that produced them.
type ActivityLogger struct {
	Store ActivityLogStore
}

func NewActivityLogger(store ActivityLogStore) *ActivityLogger {
	return &ActivityLogger{Store: store}
}

// Log records a portal activity. The write happens on a background
// goroutine; failures are logged and dropped.
func (a *ActivityLogger) Log(tenantID, clientID int64, action, details, ip, userAgent string) {
	if a == nil || a.Store == nil {
		return
	}

	entry := &models.PortalActivityLog{
		TenantID:  tenantID,
		ClientID:  clientID,
		Action:    action,
		Details:   details,
		IPAddress: ip,
		UserAgent: userAgent,
	}

	go func() {
		if err := a.Store.Create(context.Background(), entry); err != nil {
			log.Printf("[Activity] failed to record %s for client %d: %v", action, clientID, err)
		}
	}()
}
