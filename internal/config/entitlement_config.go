package config

type EntitlementConfig interface {
	GetMonthlyProductID() string
	GetYearlyProductID() string
	GetActiveProductIDs() []string
}

type Entitlement struct {
	MonthlyProductID string `env:"MONTHLY_PRODUCT_ID" envDefault:"premium.monthly"`
	YearlyProductID  string `env:"YEARLY_PRODUCT_ID" envDefault:"premium.yearly"`
	// ActiveProductIDs stands in for the platform receipt on hosts without a store.
	ActiveProductIDs []string `env:"ACTIVE_PRODUCT_IDS" envSeparator:","`
}

var _ EntitlementConfig = Entitlement{}

func (e Entitlement) GetMonthlyProductID() string {
	return e.MonthlyProductID
}

func (e Entitlement) GetYearlyProductID() string {
	return e.YearlyProductID
}

func (e Entitlement) GetActiveProductIDs() []string {
	return e.ActiveProductIDs
}
