package api

import (
	"errors"
	"net/http"

	"foodsnap-core/internal/models"
	"foodsnap-core/internal/response"
	"foodsnap-core/internal/services"

	"github.com/gin-gonic/gin"
)

// PremiumStatusResponse is the entitlement view shown by the app
type PremiumStatusResponse struct {
	IsPremium  bool                        `json:"is_premium"`
	Source     models.EntitlementSource    `json:"source"`
	Loading    bool                        `json:"loading"`
	Capability services.PurchaseCapability `json:"capability"`
}

func (h *Handler) premiumStatus(state models.EntitlementState) PremiumStatusResponse {
	return PremiumStatusResponse{
		IsPremium:  state.IsPremium,
		Source:     state.Source,
		Loading:    h.Store.IsLoading(),
		Capability: h.Gateway.Capability(),
	}
}

// GetPremiumStatus returns the current premium flag
// GET /api/premium/status
func (h *Handler) GetPremiumStatus(c *gin.Context) {
	response.SuccessJSON(c, h.premiumStatus(h.Store.State()))
}

// RefreshPremiumStatus re-reads the entitlement from the backend
// POST /api/premium/refresh
func (h *Handler) RefreshPremiumStatus(c *gin.Context) {
	response.SuccessJSON(c, h.premiumStatus(h.Store.Refresh(c.Request.Context())))
}

// OfferingsResponse is the paywall catalogue
type OfferingsResponse struct {
	Capability services.PurchaseCapability `json:"capability"`
	Offering   *models.Offering            `json:"offering,omitempty"`
	Monthly    *models.Package             `json:"monthly,omitempty"`
	Annual     *models.Package             `json:"annual,omitempty"`
	Preview    *models.PreviewOffering     `json:"preview,omitempty"`
}

// GetOfferings returns the live offering or the preview catalogue
// GET /api/premium/offerings
func (h *Handler) GetOfferings(c *gin.Context) {
	res := h.Gateway.ListOfferings(c.Request.Context())
	out := OfferingsResponse{
		Capability: h.Gateway.Capability(),
		Offering:   res.Live,
		Preview:    res.Preview,
	}
	out.Monthly, out.Annual = services.MonthlyAndAnnual(res.Live)
	response.SuccessJSON(c, out)
}

// PurchaseRequest identifies the package to buy and the store receipt.
// An empty receipt means the user dismissed the store sheet.
type PurchaseRequest struct {
	PackageIdentifier string `json:"package_identifier"`
	Receipt           string `json:"receipt"`
}

// PurchasePackage buys a package
// POST /api/premium/purchase
func (h *Handler) PurchasePackage(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	var result services.PurchaseResult
	pkg, err := h.Gateway.FindPackage(ctx, req.PackageIdentifier)
	switch {
	case errors.Is(err, services.ErrInvalidPackage):
		// validated again by the gateway so the outcome is recorded
		result = h.Gateway.Purchase(ctx, models.Package{Identifier: req.PackageIdentifier}, req.Receipt)
	case err != nil:
		result = services.PurchaseResult{Error: err.Error(), Err: err}
	default:
		result = h.Gateway.Purchase(ctx, *pkg, req.Receipt)
	}

	if result.Success {
		response.SuccessJSON(c, result)
		return
	}
	response.JSON(c, statusFor(result.Err), response.Failure(result.Error, result))
}

// RestorePurchases re-syncs prior purchases
// POST /api/premium/restore
func (h *Handler) RestorePurchases(c *gin.Context) {
	result := h.Gateway.Restore(c.Request.Context())
	if result.Success {
		response.SuccessJSON(c, result)
		return
	}
	response.JSON(c, statusFor(result.Err), response.Failure(result.Error, result))
}

// statusFor maps purchase errors to HTTP status codes. A cancellation is
// an expected outcome, not a failure of the request.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUserCancelled):
		return http.StatusOK
	case errors.Is(err, services.ErrInvalidPackage):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
