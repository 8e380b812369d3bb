package models

import "time"

// Client is a tenant's customer. Client CRUD lives elsewhere; the portal
// subsystem only reads clients to issue links and resolve quote visibility.
type Client struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
