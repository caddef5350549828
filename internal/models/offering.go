package models

// PackageType classifies a purchasable plan
type PackageType string

const (
	PackageTypeMonthly  PackageType = "MONTHLY"
	PackageTypeAnnual   PackageType = "ANNUAL"
	PackageTypeWeekly   PackageType = "WEEKLY"
	PackageTypeLifetime PackageType = "LIFETIME"
	PackageTypeCustom   PackageType = "CUSTOM"
	PackageTypeUnknown  PackageType = "UNKNOWN"
)

// Well-known package identifiers used by the subscription backend
const (
	MonthlyPackageID  = "$rc_monthly"
	AnnualPackageID   = "$rc_annual"
	WeeklyPackageID   = "$rc_weekly"
	LifetimePackageID = "$rc_lifetime"
)

// PackageTypeFromIdentifier derives the plan type from a package identifier
func PackageTypeFromIdentifier(identifier string) PackageType {
	switch identifier {
	case MonthlyPackageID:
		return PackageTypeMonthly
	case AnnualPackageID:
		return PackageTypeAnnual
	case WeeklyPackageID:
		return PackageTypeWeekly
	case LifetimePackageID:
		return PackageTypeLifetime
	case "":
		return PackageTypeUnknown
	default:
		return PackageTypeCustom
	}
}

// Product is the store product behind a package
type Product struct {
	Identifier         string  `json:"identifier"`
	Title              string  `json:"title,omitempty"`
	Description        string  `json:"description,omitempty"`
	Price              float64 `json:"price,omitempty"`
	PriceString        string  `json:"price_string,omitempty"`
	CurrencyCode       string  `json:"currency_code,omitempty"`
	SubscriptionPeriod string  `json:"subscription_period,omitempty"`
}

// Package is a purchasable plan fetched live from the subscription backend
type Package struct {
	Identifier         string      `json:"identifier"`
	PackageType        PackageType `json:"package_type"`
	Product            Product     `json:"product"`
	OfferingIdentifier string      `json:"offering_identifier"`
}

// Offering groups the packages presented on the paywall
type Offering struct {
	Identifier  string    `json:"identifier"`
	Description string    `json:"description,omitempty"`
	Packages    []Package `json:"packages"`
}

// PackageByType returns the first package of the given type or well-known identifier
func (o *Offering) PackageByType(t PackageType) *Package {
	if o == nil {
		return nil
	}
	for i := range o.Packages {
		pkg := &o.Packages[i]
		if pkg.PackageType == t || PackageTypeFromIdentifier(pkg.Identifier) == t {
			return pkg
		}
	}
	return nil
}

// Package looks up a package by identifier
func (o *Offering) Package(identifier string) *Package {
	if o == nil {
		return nil
	}
	for i := range o.Packages {
		if o.Packages[i].Identifier == identifier {
			return &o.Packages[i]
		}
	}
	return nil
}

// PreviewPackage is a display-only plan used where purchasing is impossible.
// It deliberately shares no type with Package.
type PreviewPackage struct {
	Identifier  string      `json:"identifier"`
	PackageType PackageType `json:"package_type"`
	Title       string      `json:"title"`
	PriceString string      `json:"price_string"`
	Period      string      `json:"period"`
}

// PreviewOffering is the synthetic catalogue shown on preview-only platforms
type PreviewOffering struct {
	Identifier string           `json:"identifier"`
	Packages   []PreviewPackage `json:"packages"`
}

// OfferingsResult carries either a live offering or a preview one
type OfferingsResult struct {
	Live    *Offering        `json:"live,omitempty"`
	Preview *PreviewOffering `json:"preview,omitempty"`
}

// Offerings is the full catalogue response from the subscription backend
type Offerings struct {
	CurrentOfferingID string              `json:"current_offering_id"`
	All               map[string]Offering `json:"all"`
}

// Current returns the offering flagged as current, if any
func (o *Offerings) Current() *Offering {
	if o == nil {
		return nil
	}
	if off, ok := o.All[o.CurrentOfferingID]; ok {
		return &off
	}
	return nil
}
