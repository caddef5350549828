package services

import (
	"context"
	"errors"
	"testing"

	"foodsnap-core/internal/metrics"
	"foodsnap-core/internal/models"
	"foodsnap-core/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monthly = models.Package{
	Identifier:         models.MonthlyPackageID,
	PackageType:        models.PackageTypeMonthly,
	OfferingIdentifier: "default",
	Product:            models.Product{Identifier: "premium_monthly", PriceString: "$4.99"},
}

func newGateway(t *testing.T, sdk *fakeSDK, supported bool) (*PurchaseGateway, *EntitlementStore, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(nil)
	store := NewEntitlementStore(sdk, storage.NewMemoryStore(), EntitlementStoreConfig{APIKey: "appl_testkey123456"}, m)
	store.Initialize(context.Background())
	return NewPurchaseGateway(sdk, store, supported, "default", "premium", m), store, m
}

func TestPurchaseGateway_Capability(t *testing.T) {
	g, _, _ := newGateway(t, &fakeSDK{infos: []*models.CustomerInfo{customerInfo()}}, true)
	assert.Equal(t, CapabilityReal, g.Capability())

	g, _, _ = newGateway(t, &fakeSDK{}, false)
	assert.Equal(t, CapabilityPreviewOnly, g.Capability())
}

func TestPurchaseGateway_ListOfferings(t *testing.T) {
	ctx := context.Background()

	t.Run("preview only", func(t *testing.T) {
		g, _, _ := newGateway(t, &fakeSDK{}, false)
		res := g.ListOfferings(ctx)
		assert.Nil(t, res.Live)
		require.NotNil(t, res.Preview)
		require.Len(t, res.Preview.Packages, 2)
		assert.Equal(t, "$4.99", res.Preview.Packages[0].PriceString)
		assert.Equal(t, "$39.99", res.Preview.Packages[1].PriceString)
	})

	t.Run("not initialized", func(t *testing.T) {
		g, _, _ := newGateway(t, &fakeSDK{configureErr: errors.New("bad key")}, true)
		res := g.ListOfferings(ctx)
		assert.Nil(t, res.Live)
		assert.Nil(t, res.Preview)
	})

	t.Run("configured offering beats current", func(t *testing.T) {
		sdk := &fakeSDK{
			infos: []*models.CustomerInfo{customerInfo()},
			offerings: &models.Offerings{
				CurrentOfferingID: "promo",
				All: map[string]models.Offering{
					"default": {Identifier: "default", Packages: []models.Package{monthly}},
					"promo":   {Identifier: "promo"},
				},
			},
		}
		g, _, _ := newGateway(t, sdk, true)
		res := g.ListOfferings(ctx)
		require.NotNil(t, res.Live)
		assert.Equal(t, "default", res.Live.Identifier)

		m, a := MonthlyAndAnnual(res.Live)
		assert.Equal(t, "premium_monthly", m.Product.Identifier)
		assert.Nil(t, a)
	})

	t.Run("falls back to current", func(t *testing.T) {
		sdk := &fakeSDK{
			infos: []*models.CustomerInfo{customerInfo()},
			offerings: &models.Offerings{
				CurrentOfferingID: "promo",
				All:               map[string]models.Offering{"promo": {Identifier: "promo"}},
			},
		}
		g, _, _ := newGateway(t, sdk, true)
		res := g.ListOfferings(ctx)
		require.NotNil(t, res.Live)
		assert.Equal(t, "promo", res.Live.Identifier)
	})
}

func TestPurchaseGateway_FindPackage(t *testing.T) {
	sdk := &fakeSDK{
		infos: []*models.CustomerInfo{customerInfo()},
		offerings: &models.Offerings{
			All: map[string]models.Offering{"default": {Identifier: "default", Packages: []models.Package{monthly}}},
		},
	}
	g, _, _ := newGateway(t, sdk, true)

	pkg, err := g.FindPackage(context.Background(), models.MonthlyPackageID)
	require.NoError(t, err)
	assert.Equal(t, "premium_monthly", pkg.Product.Identifier)

	_, err = g.FindPackage(context.Background(), "$rc_unknown")
	assert.ErrorIs(t, err, ErrInvalidPackage)
}

func TestPurchaseGateway_FindPackage_OfferingsFailure(t *testing.T) {
	sdk := &fakeSDK{infos: []*models.CustomerInfo{customerInfo()}}
	g, _, _ := newGateway(t, sdk, true)

	_, err := g.FindPackage(context.Background(), models.MonthlyPackageID)
	var sdkErr *SDKError
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, "offerings", sdkErr.Op)
	assert.NotErrorIs(t, err, ErrInvalidPackage)
}

func TestPurchaseGateway_PurchaseAdoptsOnce(t *testing.T) {
	sdk := &fakeSDK{infos: []*models.CustomerInfo{customerInfo()}, purchaseInfo: customerInfo("premium")}
	g, store, m := newGateway(t, sdk, true)

	res := g.Purchase(context.Background(), monthly, "receipt")
	require.True(t, res.Success)
	assert.True(t, store.IsPremium())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EntitlementUpdates.WithLabelValues("sdk", "purchase")))
}

func TestPurchaseGateway_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid package never reaches the backend", func(t *testing.T) {
		sdk := &fakeSDK{infos: []*models.CustomerInfo{customerInfo()}}
		g, _, m := newGateway(t, sdk, true)

		for _, pkg := range []models.Package{
			{},
			{Identifier: models.MonthlyPackageID},
			{Product: models.Product{Identifier: "premium_monthly"}},
		} {
			res := g.Purchase(ctx, pkg, "receipt")
			assert.False(t, res.Success)
			assert.Equal(t, ResultPackageNotAllowed, res.Error)
			assert.ErrorIs(t, res.Err, ErrInvalidPackage)
		}
		assert.Equal(t, 0, sdk.purchaseCalls)
		assert.Equal(t, float64(3), testutil.ToFloat64(m.PurchaseOutcomes.WithLabelValues("invalid_package")))
	})

	t.Run("cancellation", func(t *testing.T) {
		sdk := &fakeSDK{infos: []*models.CustomerInfo{customerInfo()}}
		g, _, _ := newGateway(t, sdk, true)
		res := g.Purchase(ctx, monthly, "")
		assert.False(t, res.Success)
		assert.Equal(t, ResultCancelled, res.Error)
		assert.ErrorIs(t, res.Err, ErrUserCancelled)
	})

	t.Run("not initialized", func(t *testing.T) {
		sdk := &fakeSDK{configureErr: errors.New("bad key")}
		g, _, _ := newGateway(t, sdk, true)
		res := g.Purchase(ctx, monthly, "receipt")
		assert.ErrorIs(t, res.Err, ErrNotInitialized)
		assert.Equal(t, 0, sdk.purchaseCalls)
	})

	t.Run("preview only", func(t *testing.T) {
		sdk := &fakeSDK{}
		g, _, _ := newGateway(t, sdk, false)
		res := g.Purchase(ctx, monthly, "receipt")
		assert.ErrorIs(t, res.Err, ErrNotInitialized)
		assert.Equal(t, 0, sdk.purchaseCalls)
	})

	t.Run("backend error is passed through", func(t *testing.T) {
		sdk := &fakeSDK{infos: []*models.CustomerInfo{customerInfo()}, purchaseErr: errors.New("store unavailable")}
		g, _, _ := newGateway(t, sdk, true)
		res := g.Purchase(ctx, monthly, "receipt")
		assert.False(t, res.Success)
		assert.Equal(t, "store unavailable", res.Error)
		var sdkErr *SDKError
		assert.ErrorAs(t, res.Err, &sdkErr)
	})

	t.Run("success updates the store", func(t *testing.T) {
		sdk := &fakeSDK{infos: []*models.CustomerInfo{customerInfo()}, purchaseInfo: customerInfo("premium")}
		g, store, _ := newGateway(t, sdk, true)
		require.False(t, store.IsPremium())

		res := g.Purchase(ctx, monthly, "receipt")
		assert.True(t, res.Success)
		assert.Empty(t, res.Error)
		assert.True(t, store.IsPremium())
	})
}

func TestPurchaseGateway_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing to restore", func(t *testing.T) {
		g, store, _ := newGateway(t, &fakeSDK{infos: []*models.CustomerInfo{customerInfo()}}, true)
		res := g.Restore(ctx)
		assert.Equal(t, RestoreResult{Success: true, IsPremium: false}, res)
		assert.False(t, store.IsPremium())
	})

	t.Run("restored premium", func(t *testing.T) {
		g, store, _ := newGateway(t, &fakeSDK{infos: []*models.CustomerInfo{customerInfo(), customerInfo("premium")}}, true)
		res := g.Restore(ctx)
		assert.True(t, res.Success)
		assert.True(t, res.IsPremium)
		assert.True(t, store.IsPremium())
	})

	t.Run("not initialized", func(t *testing.T) {
		g, _, _ := newGateway(t, &fakeSDK{configureErr: errors.New("bad key")}, true)
		res := g.Restore(ctx)
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, ErrNotInitialized)
	})

	t.Run("backend failure", func(t *testing.T) {
		sdk := &fakeSDK{infos: []*models.CustomerInfo{customerInfo()}}
		g, _, _ := newGateway(t, sdk, true)
		sdk.infoErr = errors.New("network down")
		res := g.Restore(ctx)
		assert.False(t, res.Success)
		assert.Equal(t, "network down", res.Error)
	})
}
