package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/timeutil"
)

func TestSettingsNormalizesZeroValues(t *testing.T) {
	tenants := newFakeTenantStore()
	tenants.settings[5] = &models.TenantPortalSettings{TenantID: 5}

	policy := NewExpiryPolicy(tenants)
	settings, err := policy.Settings(context.Background(), 5)
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}

	if settings.DefaultExpiryDays != models.DefaultExpiryDays {
		t.Errorf("expected default expiry %d, got %d", models.DefaultExpiryDays, settings.DefaultExpiryDays)
	}
	if settings.MaxExpiryDays != models.DefaultMaxDays {
		t.Errorf("expected max %d, got %d", models.DefaultMaxDays, settings.MaxExpiryDays)
	}
	if settings.AutoCleanupDays != models.DefaultCleanupDays {
		t.Errorf("expected cleanup days %d, got %d", models.DefaultCleanupDays, settings.AutoCleanupDays)
	}
}

func TestSettingsUnknownTenant(t *testing.T) {
	policy := NewExpiryPolicy(newFakeTenantStore())

	if _, err := policy.Settings(context.Background(), 42); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestClampDays(t *testing.T) {
	policy := NewExpiryPolicy(newFakeTenantStore())
	settings := &models.TenantPortalSettings{DefaultExpiryDays: 7, MaxExpiryDays: 90}

	cases := []struct {
		name      string
		requested int
		want      int
	}{
		{"zero uses tenant default", 0, 7},
		{"negative uses tenant default", -3, 7},
		{"in range passes through", 30, 30},
		{"above max clamps", 365, 90},
		{"exactly max", 90, 90},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.ClampDays(settings, tc.requested); got != tc.want {
				t.Errorf("ClampDays(%d) = %d, want %d", tc.requested, got, tc.want)
			}
		})
	}
}

func TestLinkExpiryUsesClampedDays(t *testing.T) {
	tenants := newFakeTenantStore()
	tenants.addTenant(1, 7, 90)

	policy := NewExpiryPolicy(tenants)
	policy.Now = fixedClock(testStart)

	expiresAt, settings, err := policy.LinkExpiry(context.Background(), 1, 365)
	if err != nil {
		t.Fatalf("LinkExpiry failed: %v", err)
	}
	if settings.TenantID != 1 {
		t.Errorf("expected tenant 1 settings, got %d", settings.TenantID)
	}
	want := testStart.Add(timeutil.Days(90))
	if !expiresAt.Equal(want) {
		t.Errorf("expected %v, got %v", want, expiresAt)
	}
}

func TestRetention(t *testing.T) {
	tenants := newFakeTenantStore()
	tenants.addTenant(1, 7, 90)
	tenants.settings[1].AutoCleanupDays = 45
	tenants.settings[1].AutoCleanupEnabled = false

	policy := NewExpiryPolicy(tenants)
	retention, enabled, err := policy.Retention(context.Background(), 1)
	if err != nil {
		t.Fatalf("Retention failed: %v", err)
	}
	if enabled {
		t.Error("expected cleanup disabled")
	}
	if retention != timeutil.Days(45) {
		t.Errorf("expected retention %v, got %v", timeutil.Days(45), retention)
	}
}
