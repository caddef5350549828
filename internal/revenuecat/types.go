package revenuecat

import (
	"time"

	"foodsnap-core/internal/models"
)

type receiptRequest struct {
	AppUserID                   string  `json:"app_user_id"`
	FetchToken                  string  `json:"fetch_token"`
	ProductID                   string  `json:"product_id,omitempty"`
	PresentedOfferingIdentifier string  `json:"presented_offering_identifier,omitempty"`
	Price                       float64 `json:"price,omitempty"`
	Currency                    string  `json:"currency,omitempty"`
}

type entitlementPayload struct {
	ExpiresDate            *time.Time `json:"expires_date"`
	GracePeriodExpiresDate *time.Time `json:"grace_period_expires_date"`
	ProductIdentifier      string     `json:"product_identifier"`
	PurchaseDate           time.Time  `json:"purchase_date"`
}

type subscriberResponse struct {
	RequestDate time.Time `json:"request_date"`
	Subscriber  struct {
		OriginalAppUserID string                        `json:"original_app_user_id"`
		Entitlements      map[string]entitlementPayload `json:"entitlements"`
	} `json:"subscriber"`
}

// toCustomerInfo splits entitlements into all and active. An entitlement is
// active while it has no expiry or its expiry (or grace period) is after the
// request date.
func (r *subscriberResponse) toCustomerInfo(appUserID string) *models.CustomerInfo {
	ref := r.RequestDate
	if ref.IsZero() {
		ref = time.Now()
	}

	info := &models.CustomerInfo{
		AppUserID:         appUserID,
		OriginalAppUserID: r.Subscriber.OriginalAppUserID,
		RequestDate:       ref,
		Entitlements: models.EntitlementInfos{
			All:    make(map[string]models.EntitlementInfo, len(r.Subscriber.Entitlements)),
			Active: make(map[string]models.EntitlementInfo),
		},
	}

	for id, e := range r.Subscriber.Entitlements {
		expires := e.ExpiresDate
		if e.GracePeriodExpiresDate != nil && (expires == nil || e.GracePeriodExpiresDate.After(*expires)) {
			expires = e.GracePeriodExpiresDate
		}
		active := expires == nil || expires.After(ref)

		ent := models.EntitlementInfo{
			Identifier:        id,
			ProductIdentifier: e.ProductIdentifier,
			PurchaseDate:      e.PurchaseDate,
			ExpiresDate:       e.ExpiresDate,
			IsActive:          active,
		}
		info.Entitlements.All[id] = ent
		if active {
			info.Entitlements.Active[id] = ent
		}
	}
	return info
}

type packagePayload struct {
	Identifier              string  `json:"identifier"`
	PlatformProductID       string  `json:"platform_product_identifier"`
	ProductTitle            string  `json:"product_title,omitempty"`
	ProductPrice            float64 `json:"price,omitempty"`
	ProductPriceString      string  `json:"price_string,omitempty"`
	ProductCurrencyCode     string  `json:"currency_code,omitempty"`
	ProductSubscriptionSpan string  `json:"subscription_period,omitempty"`
}

type offeringPayload struct {
	Identifier  string           `json:"identifier"`
	Description string           `json:"description"`
	Packages    []packagePayload `json:"packages"`
}

type offeringsResponse struct {
	CurrentOfferingID string            `json:"current_offering_id"`
	Offerings         []offeringPayload `json:"offerings"`
}

func (r *offeringsResponse) toOfferings() *models.Offerings {
	out := &models.Offerings{
		CurrentOfferingID: r.CurrentOfferingID,
		All:               make(map[string]models.Offering, len(r.Offerings)),
	}
	for _, o := range r.Offerings {
		off := models.Offering{
			Identifier:  o.Identifier,
			Description: o.Description,
			Packages:    make([]models.Package, 0, len(o.Packages)),
		}
		for _, p := range o.Packages {
			off.Packages = append(off.Packages, models.Package{
				Identifier:         p.Identifier,
				PackageType:        models.PackageTypeFromIdentifier(p.Identifier),
				OfferingIdentifier: o.Identifier,
				Product: models.Product{
					Identifier:         p.PlatformProductID,
					Title:              p.ProductTitle,
					Price:              p.ProductPrice,
					PriceString:        p.ProductPriceString,
					CurrencyCode:       p.ProductCurrencyCode,
					SubscriptionPeriod: p.ProductSubscriptionSpan,
				},
			})
		}
		out.All[o.Identifier] = off
	}
	return out
}
