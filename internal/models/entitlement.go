package models

import "time"

// EntitlementSource records where the current premium value came from
type EntitlementSource string

const (
	EntitlementSourceUnset    EntitlementSource = "unset"
	EntitlementSourceSDK      EntitlementSource = "sdk"
	EntitlementSourceFallback EntitlementSource = "persisted_fallback"
)

// EntitlementState is the best-known premium entitlement for the app user
type EntitlementState struct {
	IsPremium bool              `json:"is_premium"`
	Source    EntitlementSource `json:"source"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
}

// EntitlementInfo mirrors one entitlement entry of the subscriber record
type EntitlementInfo struct {
	Identifier        string     `json:"identifier"`
	ProductIdentifier string     `json:"product_identifier"`
	PurchaseDate      time.Time  `json:"purchase_date"`
	ExpiresDate       *time.Time `json:"expires_date,omitempty"` // nil for lifetime purchases
	IsActive          bool       `json:"is_active"`
}

// EntitlementInfos groups every known entitlement and the active subset
type EntitlementInfos struct {
	All    map[string]EntitlementInfo `json:"all"`
	Active map[string]EntitlementInfo `json:"active"`
}

// CustomerInfo is the subscriber snapshot returned by the subscription backend
type CustomerInfo struct {
	AppUserID         string           `json:"app_user_id"`
	OriginalAppUserID string           `json:"original_app_user_id"`
	Entitlements      EntitlementInfos `json:"entitlements"`
	RequestDate       time.Time        `json:"request_date"`
}

// HasActiveEntitlement reports whether entitlementID is active for this customer
func (c *CustomerInfo) HasActiveEntitlement(entitlementID string) bool {
	if c == nil || c.Entitlements.Active == nil {
		return false
	}
	_, ok := c.Entitlements.Active[entitlementID]
	return ok
}
