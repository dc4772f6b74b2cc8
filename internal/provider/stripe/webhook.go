package stripe

import (
	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Verifier checks a webhook delivery against the signing secret. It is an
// interface so handler tests can substitute a fake instead of re-signing
// payloads.
type Verifier interface {
	ConstructEvent(payload []byte, sigHeader, secret string) (stripeapi.Event, error)
}

// DefaultVerifier uses the SDK's HMAC verification.
type DefaultVerifier struct{}

func (DefaultVerifier) ConstructEvent(payload []byte, sigHeader, secret string) (stripeapi.Event, error) {
	// Stripe bumps the pinned API version independently of webhook payload
	// shape; a mismatch alone is not a reason to drop deliveries.
	return webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
