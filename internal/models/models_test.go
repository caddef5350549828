package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentCacheEntry_FreshAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 24 * time.Hour

	fresh := ContentCacheEntry{Body: "eat greens", Timestamp: now.Add(-23 * time.Hour).UnixMilli()}
	stale := ContentCacheEntry{Body: "eat greens", Timestamp: now.Add(-25 * time.Hour).UnixMilli()}
	boundary := ContentCacheEntry{Body: "eat greens", Timestamp: now.Add(-ttl).UnixMilli()}
	empty := ContentCacheEntry{Timestamp: now.UnixMilli()}

	assert.True(t, fresh.FreshAt(now, ttl))
	assert.False(t, stale.FreshAt(now, ttl))
	assert.False(t, boundary.FreshAt(now, ttl))
	assert.False(t, empty.FreshAt(now, ttl))
}

func TestMealType(t *testing.T) {
	h, m := MealLunch.FireTime()
	assert.Equal(t, 10, h)
	assert.Equal(t, 0, m)

	h, m = MealDinner.FireTime()
	assert.Equal(t, 18, h)
	assert.Equal(t, 0, m)

	assert.Equal(t, "lunch-reminder", MealLunch.NotificationID())
	assert.Equal(t, "dinner_reminder_enabled", MealDinner.EnabledKey())

	meal, err := ParseMealType("dinner")
	require.NoError(t, err)
	assert.Equal(t, MealDinner, meal)

	_, err = ParseMealType("brunch")
	assert.Error(t, err)
}

func TestOffering_PackageByType(t *testing.T) {
	off := &Offering{
		Identifier: "default",
		Packages: []Package{
			{Identifier: MonthlyPackageID, Product: Product{Identifier: "premium_monthly"}},
			{Identifier: "yearly_promo", PackageType: PackageTypeAnnual, Product: Product{Identifier: "premium_annual"}},
		},
	}

	require.NotNil(t, off.PackageByType(PackageTypeMonthly))
	assert.Equal(t, "premium_monthly", off.PackageByType(PackageTypeMonthly).Product.Identifier)
	require.NotNil(t, off.PackageByType(PackageTypeAnnual))
	assert.Equal(t, "yearly_promo", off.PackageByType(PackageTypeAnnual).Identifier)
	assert.Nil(t, off.PackageByType(PackageTypeLifetime))
	assert.Nil(t, (*Offering)(nil).PackageByType(PackageTypeMonthly))
	assert.NotNil(t, off.Package("yearly_promo"))
	assert.Nil(t, off.Package("missing"))
}

func TestCustomerInfo_HasActiveEntitlement(t *testing.T) {
	info := &CustomerInfo{Entitlements: EntitlementInfos{Active: map[string]EntitlementInfo{"premium": {Identifier: "premium"}}}}
	assert.True(t, info.HasActiveEntitlement("premium"))
	assert.False(t, info.HasActiveEntitlement("pro"))
	assert.False(t, (&CustomerInfo{}).HasActiveEntitlement("premium"))
	assert.False(t, (*CustomerInfo)(nil).HasActiveEntitlement("premium"))
}
