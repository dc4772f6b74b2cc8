package stripe

import (
	"context"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v82"

	"vaultpay/internal/domain/catalog"
)

// SyncAutomation creates the missing Stripe product and prices for a catalog
// entry and fills the ids on the passed struct. Identifiers that already
// exist are left alone, so re-running sync is safe.
func (c *Client) SyncAutomation(ctx context.Context, a *catalog.Automation) error {
	if a.StripeProductID == "" {
		params := &stripeapi.ProductParams{
			Name: stripeapi.String(a.Name),
		}
		params.Context = ctx
		prod, err := c.api.Products.New(params)
		if err != nil {
			return fmt.Errorf("create product for %s: %w", a.Name, err)
		}
		a.StripeProductID = prod.ID
	}

	if a.StripeSetupPriceID == "" && a.SetupPrice > 0 {
		params := &stripeapi.PriceParams{
			Product:    stripeapi.String(a.StripeProductID),
			Currency:   stripeapi.String("usd"),
			UnitAmount: stripeapi.Int64(int64(a.SetupPrice)),
			Nickname:   stripeapi.String(a.Name + " setup fee"),
		}
		params.Context = ctx
		price, err := c.api.Prices.New(params)
		if err != nil {
			return fmt.Errorf("create setup price for %s: %w", a.Name, err)
		}
		a.StripeSetupPriceID = price.ID
	}

	if a.StripeMonthlyPriceID == "" && a.MonthlyPrice > 0 {
		params := &stripeapi.PriceParams{
			Product:    stripeapi.String(a.StripeProductID),
			Currency:   stripeapi.String("usd"),
			UnitAmount: stripeapi.Int64(int64(a.MonthlyPrice)),
			Nickname:   stripeapi.String(a.Name + " monthly"),
			Recurring: &stripeapi.PriceRecurringParams{
				Interval: stripeapi.String("month"),
			},
		}
		params.Context = ctx
		price, err := c.api.Prices.New(params)
		if err != nil {
			return fmt.Errorf("create monthly price for %s: %w", a.Name, err)
		}
		a.StripeMonthlyPriceID = price.ID
	}

	return nil
}
