package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNeedsStripeSync(t *testing.T) {
	a := &Automation{ID: uuid.New(), Name: "Lead Router", SetupPrice: 10000, MonthlyPrice: 5000}
	assert.True(t, a.NeedsStripeSync(), "no product id")

	a.StripeProductID = "prod_1"
	assert.True(t, a.NeedsStripeSync(), "missing setup price id with a setup price")

	a.StripeSetupPriceID = "price_setup"
	assert.True(t, a.NeedsStripeSync(), "missing monthly price id with a monthly price")

	a.StripeMonthlyPriceID = "price_monthly"
	assert.False(t, a.NeedsStripeSync())
}

func TestNeedsStripeSyncIgnoresZeroPricedLegs(t *testing.T) {
	// A free setup never gets a price; the entry must not stay pending forever.
	a := &Automation{
		ID:              uuid.New(),
		Name:            "Free Onboarding",
		SetupPrice:      0,
		MonthlyPrice:    5000,
		StripeProductID: "prod_1",
	}
	a.StripeMonthlyPriceID = "price_monthly"
	assert.False(t, a.NeedsStripeSync())

	zero := &Automation{ID: uuid.New(), Name: "Legacy", StripeProductID: "prod_2"}
	assert.False(t, zero.NeedsStripeSync(), "no priced legs at all")
}
