package services

import (
	"context"
	"errors"
	"fmt"

	"foodsnap-core/internal/metrics"
	"foodsnap-core/internal/models"
	"foodsnap-core/internal/revenuecat"
	"foodsnap-core/pkg/logging"
)

// PurchaseCapability tells the UI whether buying is possible
type PurchaseCapability string

const (
	CapabilityReal        PurchaseCapability = "real"
	CapabilityPreviewOnly PurchaseCapability = "preview_only"
)

// PurchaseResult is the outcome of a purchase attempt
type PurchaseResult struct {
	Success      bool                 `json:"success"`
	CustomerInfo *models.CustomerInfo `json:"customer_info,omitempty"`
	Error        string               `json:"error,omitempty"`
	Err          error                `json:"-"`
}

// RestoreResult is the outcome of a restore attempt
type RestoreResult struct {
	Success   bool   `json:"success"`
	IsPremium bool   `json:"is_premium"`
	Error     string `json:"error,omitempty"`
	Err       error  `json:"-"`
}

// PurchaseGateway fronts the purchases backend for the paywall
type PurchaseGateway struct {
	sdk           SubscriptionSDK
	store         *EntitlementStore
	capability    PurchaseCapability
	offeringID    string
	entitlementID string
	metrics       *metrics.Metrics
}

// NewPurchaseGateway creates a gateway. supported is false on platforms
// where only preview data may be shown.
func NewPurchaseGateway(sdk SubscriptionSDK, store *EntitlementStore, supported bool, offeringID, entitlementID string, m *metrics.Metrics) *PurchaseGateway {
	capability := CapabilityPreviewOnly
	if supported {
		capability = CapabilityReal
	}
	if entitlementID == "" {
		entitlementID = "premium"
	}
	return &PurchaseGateway{
		sdk:           sdk,
		store:         store,
		capability:    capability,
		offeringID:    offeringID,
		entitlementID: entitlementID,
		metrics:       m,
	}
}

// Capability reports whether purchases are real or preview only
func (g *PurchaseGateway) Capability() PurchaseCapability {
	return g.capability
}

// PreviewOffering is the synthetic catalogue for preview-only platforms
func PreviewOffering() *models.PreviewOffering {
	return &models.PreviewOffering{
		Identifier: "preview",
		Packages: []models.PreviewPackage{
			{
				Identifier:  models.MonthlyPackageID,
				PackageType: models.PackageTypeMonthly,
				Title:       "FoodSnap Premium Monthly",
				PriceString: "$4.99",
				Period:      "P1M",
			},
			{
				Identifier:  models.AnnualPackageID,
				PackageType: models.PackageTypeAnnual,
				Title:       "FoodSnap Premium Annual",
				PriceString: "$39.99",
				Period:      "P1Y",
			},
		},
	}
}

// ListOfferings returns the configured offering, else the current one.
// Preview-only platforms get the synthetic catalogue; an uninitialized
// backend or a failed read yields an empty result.
func (g *PurchaseGateway) ListOfferings(ctx context.Context) models.OfferingsResult {
	if g.capability == CapabilityPreviewOnly {
		return models.OfferingsResult{Preview: PreviewOffering()}
	}
	if !g.sdk.IsConfigured() {
		return models.OfferingsResult{}
	}

	live, err := g.liveOffering(ctx)
	if err != nil {
		logging.Errorf("Failed to load offerings: %v", err)
		return models.OfferingsResult{}
	}
	return models.OfferingsResult{Live: live}
}

func (g *PurchaseGateway) liveOffering(ctx context.Context) (*models.Offering, error) {
	offerings, err := g.sdk.Offerings(ctx)
	if err != nil {
		return nil, &SDKError{Op: "offerings", Err: err}
	}
	if off, ok := offerings.All[g.offeringID]; ok && g.offeringID != "" {
		return &off, nil
	}
	return offerings.Current(), nil
}

// MonthlyAndAnnual picks the two paywall plans of a live offering
func MonthlyAndAnnual(off *models.Offering) (monthly, annual *models.Package) {
	return off.PackageByType(models.PackageTypeMonthly), off.PackageByType(models.PackageTypeAnnual)
}

// FindPackage looks up a live package by identifier
func (g *PurchaseGateway) FindPackage(ctx context.Context, identifier string) (*models.Package, error) {
	if g.capability == CapabilityPreviewOnly || !g.sdk.IsConfigured() {
		return nil, ErrNotInitialized
	}
	live, err := g.liveOffering(ctx)
	if err != nil {
		return nil, err
	}
	pkg := live.Package(identifier)
	if pkg == nil {
		return nil, ErrInvalidPackage
	}
	return pkg, nil
}

// ValidatePackage requires both the package and product identifiers
func ValidatePackage(pkg models.Package) error {
	if pkg.Identifier == "" || pkg.Product.Identifier == "" {
		return ErrInvalidPackage
	}
	return nil
}

// Purchase buys pkg with the store receipt. Invalid packages are rejected
// before the backend is called. On success the entitlement store is updated.
func (g *PurchaseGateway) Purchase(ctx context.Context, pkg models.Package, receipt string) PurchaseResult {
	result := g.purchase(ctx, pkg, receipt)
	if g.metrics != nil {
		g.metrics.PurchaseOutcomes.WithLabelValues(outcome(result.Success, result.Err)).Inc()
	}
	return result
}

func (g *PurchaseGateway) purchase(ctx context.Context, pkg models.Package, receipt string) PurchaseResult {
	if err := ValidatePackage(pkg); err != nil {
		logging.Warnf("Rejected purchase of invalid package %q", pkg.Identifier)
		return PurchaseResult{Error: ResultPackageNotAllowed, Err: err}
	}
	if g.capability == CapabilityPreviewOnly {
		err := fmt.Errorf("%w: purchases are not available on this platform", ErrNotInitialized)
		return PurchaseResult{Error: err.Error(), Err: err}
	}
	if !g.sdk.IsConfigured() {
		return PurchaseResult{Error: ErrNotInitialized.Error(), Err: ErrNotInitialized}
	}

	info, err := g.sdk.PurchasePackage(ctx, pkg, receipt)
	if err != nil {
		return failedPurchase("purchase", err)
	}

	logging.Infof("Purchase completed - package: %s, product: %s", pkg.Identifier, pkg.Product.Identifier)
	g.store.SetFromPurchaseResult(ctx, info)
	return PurchaseResult{Success: true, CustomerInfo: info}
}

func failedPurchase(op string, err error) PurchaseResult {
	switch {
	case errors.Is(err, revenuecat.ErrUserCancelled):
		logging.Infof("Purchase cancelled by user")
		return PurchaseResult{Error: ResultCancelled, Err: ErrUserCancelled}
	case errors.Is(err, revenuecat.ErrNotConfigured):
		return PurchaseResult{Error: ErrNotInitialized.Error(), Err: ErrNotInitialized}
	}
	sdkErr := &SDKError{Op: op, Err: err}
	logging.Errorf("%v", sdkErr)
	return PurchaseResult{Error: err.Error(), Err: sdkErr}
}

// Restore re-syncs prior purchases and reports whether premium is active
func (g *PurchaseGateway) Restore(ctx context.Context) RestoreResult {
	result := g.restore(ctx)
	if g.metrics != nil {
		g.metrics.RestoreOutcomes.WithLabelValues(outcome(result.Success, result.Err)).Inc()
	}
	return result
}

func (g *PurchaseGateway) restore(ctx context.Context) RestoreResult {
	if g.capability == CapabilityPreviewOnly || !g.sdk.IsConfigured() {
		return RestoreResult{Error: ErrNotInitialized.Error(), Err: ErrNotInitialized}
	}

	info, err := g.sdk.RestorePurchases(ctx)
	if err != nil {
		failed := failedPurchase("restore", err)
		return RestoreResult{Error: failed.Error, Err: failed.Err}
	}

	g.store.SetFromPurchaseResult(ctx, info)
	premium := info.HasActiveEntitlement(g.entitlementID)
	logging.Infof("Purchases restored - premium: %t", premium)
	return RestoreResult{Success: true, IsPremium: premium}
}

func outcome(success bool, err error) string {
	switch {
	case success:
		return "success"
	case errors.Is(err, ErrUserCancelled):
		return "cancelled"
	case errors.Is(err, ErrInvalidPackage):
		return "invalid_package"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	default:
		return "error"
	}
}
