package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// zeroDecimalCurrencies are charged in whole units by Stripe.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {}, "KRW": {}, "MGA": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

var errAmountRequired = errors.New("donation amount must be positive")

// CheckoutRequest describes a one-off donation checkout.
type CheckoutRequest struct {
	Amount      decimal.Decimal
	Currency    string
	ProductName string
	DonorEmail  string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CheckoutSession is the subset of a Stripe checkout session the donation
// flow persists.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
}

// UnitAmount converts a major-unit amount into Stripe's smallest currency unit.
func UnitAmount(amount decimal.Decimal, currency string) int64 {
	if _, ok := zeroDecimalCurrencies[strings.ToUpper(currency)]; ok {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}

// CreateCheckoutSession opens a payment-mode checkout session for a single
// donation line item.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if c == nil {
		return nil, errAPIKeyRequired
	}
	unitAmount := UnitAmount(req.Amount, req.Currency)
	if unitAmount <= 0 {
		return nil, errAmountRequired
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(unitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.ProductName),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
	if email := strings.TrimSpace(req.DonorEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	params.Context = ctx

	created, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return toCheckoutSession(created), nil
}

// FindSessionByPaymentIntent returns the checkout session that produced the
// payment intent, or nil when Stripe knows of none.
func (c *Client) FindSessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*CheckoutSession, error) {
	if c == nil {
		return nil, errAPIKeyRequired
	}
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := session.List(params)
	for iter.Next() {
		return toCheckoutSession(iter.CheckoutSession()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	if s == nil {
		return nil
	}
	out := &CheckoutSession{ID: s.ID, URL: s.URL}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}
