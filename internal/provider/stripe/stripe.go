package stripe

import (
	"github.com/stripe/stripe-go/v82/client"

	"vaultpay/internal/config"
)

// Client wraps the Stripe SDK behind an explicitly constructed API client so
// nothing in the codebase depends on the SDK's package-level key.
type Client struct {
	api     *client.API
	cfg     config.StripeCfg
	baseURL string
}

func New(cfg config.StripeCfg, baseURL string) *Client {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &Client{api: api, cfg: cfg, baseURL: baseURL}
}

func (c *Client) successURL() string {
	return c.baseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"
}

func (c *Client) cancelURL() string {
	return c.baseURL + "/payment/cancel"
}

// Configured reports whether a secret key is present. Callers return a
// server-error status instead of calling out with an empty key.
func (c *Client) Configured() bool {
	return c.cfg.SecretKey != ""
}
