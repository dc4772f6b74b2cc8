package catalog

import (
	"github.com/google/uuid"

	"vaultpay/internal/domain/ledger"
)

// Automation is a catalog entry. The reconciler treats it as read-only;
// pricing changes and new entries come from the back office.
type Automation struct {
	ID                   uuid.UUID
	Name                 string
	SetupPrice           ledger.Money
	MonthlyPrice         ledger.Money
	StripeProductID      string
	StripeSetupPriceID   string
	StripeMonthlyPriceID string
}

// NeedsStripeSync reports whether the entry is missing a Stripe identifier it
// can actually get. A zero-priced leg never gets a price, so its missing id
// does not count; otherwise the entry would be reported as pending forever.
func (a *Automation) NeedsStripeSync() bool {
	if a.StripeProductID == "" {
		return true
	}
	if a.StripeSetupPriceID == "" && a.SetupPrice > 0 {
		return true
	}
	return a.StripeMonthlyPriceID == "" && a.MonthlyPrice > 0
}
