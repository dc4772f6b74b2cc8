package stripe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v82"

	"vaultpay/internal/domain/catalog"
)

// Metadata keys and payment_type values carried on checkout sessions; the
// reconciler dispatches on these when the session completes.
const (
	MetaAutomationID = "automation_id"
	MetaClientID     = "client_id"
	MetaPaymentType  = "payment_type"

	PaymentTypeSetupFee            = "setup_fee"
	PaymentTypeMonthlySubscription = "monthly_subscription"
)

// CheckoutSession is the subset of Stripe's session the HTTP layer returns.
type CheckoutSession struct {
	ID  string
	URL string
}

// NewSetupSession creates a one-off Checkout Session for an automation's
// setup fee. Uses the synced price when present, inline price data otherwise.
func (c *Client) NewSetupSession(ctx context.Context, a *catalog.Automation, clientID uuid.UUID, customerEmail string) (*CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode:       stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL: stripeapi.String(c.successURL()),
		CancelURL:  stripeapi.String(c.cancelURL()),
		Metadata: map[string]string{
			MetaAutomationID: a.ID.String(),
			MetaClientID:     clientID.String(),
			MetaPaymentType:  PaymentTypeSetupFee,
		},
	}
	params.Context = ctx
	if customerEmail != "" {
		params.CustomerEmail = stripeapi.String(customerEmail)
	}

	if a.StripeSetupPriceID != "" {
		params.LineItems = []*stripeapi.CheckoutSessionLineItemParams{{
			Price:    stripeapi.String(a.StripeSetupPriceID),
			Quantity: stripeapi.Int64(1),
		}}
	} else {
		params.LineItems = []*stripeapi.CheckoutSessionLineItemParams{{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String("usd"),
				UnitAmount: stripeapi.Int64(int64(a.SetupPrice)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(a.Name + " setup"),
				},
			},
			Quantity: stripeapi.Int64(1),
		}}
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create setup checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// NewSubscriptionSession creates a subscription-mode Checkout Session for an
// automation's monthly fee.
func (c *Client) NewSubscriptionSession(ctx context.Context, a *catalog.Automation, clientID uuid.UUID, customerEmail string) (*CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode:       stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		SuccessURL: stripeapi.String(c.successURL()),
		CancelURL:  stripeapi.String(c.cancelURL()),
		Metadata: map[string]string{
			MetaAutomationID: a.ID.String(),
			MetaClientID:     clientID.String(),
			MetaPaymentType:  PaymentTypeMonthlySubscription,
		},
	}
	params.Context = ctx
	if customerEmail != "" {
		params.CustomerEmail = stripeapi.String(customerEmail)
	}

	if a.StripeMonthlyPriceID != "" {
		params.LineItems = []*stripeapi.CheckoutSessionLineItemParams{{
			Price:    stripeapi.String(a.StripeMonthlyPriceID),
			Quantity: stripeapi.Int64(1),
		}}
	} else {
		params.LineItems = []*stripeapi.CheckoutSessionLineItemParams{{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String("usd"),
				UnitAmount: stripeapi.Int64(int64(a.MonthlyPrice)),
				Recurring: &stripeapi.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripeapi.String("month"),
				},
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(a.Name),
				},
			},
			Quantity: stripeapi.Int64(1),
		}}
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create subscription checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
