// Package stripe talks to Stripe for donation checkout and exposes the
// webhook signing secret to the HTTP layer.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
)

// Mode is the Stripe account mode a key belongs to.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

var keyPrefixes = map[Mode][]string{
	ModeTest: {"sk_test_", "rk_test_"},
	ModeLive: {"sk_live_", "rk_live_"},
}

var (
	errAPIKeyRequired = errors.New("stripe api key is required")
	errSecretRequired = errors.New("stripe webhook secret is required")
)

// Client holds the configured Stripe credentials. Checkout calls go
// through the package-level backend keyed on construction.
type Client struct {
	mode          Mode
	signingSecret string
}

// NewClient checks that the key matches the configured mode and keys the
// global Stripe backend.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode, err := ParseMode(cfg.Environment())
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	switch {
	case key == "":
		return nil, errAPIKeyRequired
	case secret == "":
		return nil, errSecretRequired
	}
	if got := KeyMode(key); got != mode {
		return nil, fmt.Errorf("stripe %s mode needs a %s key (%s)", mode, mode, strings.Join(keyPrefixes[mode], "/"))
	}

	stripe.Key = key
	stripe.SetAppInfo(&stripe.AppInfo{Name: "creatorhub-backend"})

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_mode", string(mode)), "stripe client ready")
	}
	return &Client{mode: mode, signingSecret: secret}, nil
}

// ParseMode accepts "test" or "live" in any case. Empty means test.
func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ModeTest, nil
	case ModeTest, ModeLive:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown stripe mode %q", raw)
	}
}

// KeyMode infers the account mode from a secret or restricted key prefix.
// Unrecognised keys return "".
func KeyMode(key string) Mode {
	for mode, prefixes := range keyPrefixes {
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				return mode
			}
		}
	}
	return ""
}

// Environment reports the Stripe mode as a string for log fields.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return string(c.mode)
}

// SigningSecret returns the webhook endpoint secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}
