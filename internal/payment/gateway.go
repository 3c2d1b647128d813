// Package payment talks to the external payment gateway.  The gateway is
// opaque: it is asked for a payment intent and either answers with an
// identifier and client secret or fails.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrNotConfigured is returned by the Stripe gateway when no secret key
// was provided.
var ErrNotConfigured = errors.New("payment gateway not configured")

// Intent is the gateway-side object representing an authorized but not
// yet settled charge.
type Intent struct {
	ID           string
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Status       string
}

// Gateway creates payment intents.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
}

// StripeGateway implements Gateway on top of the Stripe API.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway returns a gateway using secretKey.  An empty key yields
// a gateway whose calls fail with ErrNotConfigured.
func NewStripeGateway(secretKey string) *StripeGateway {
	if strings.TrimSpace(secretKey) == "" {
		return &StripeGateway{}
	}
	return &StripeGateway{api: client.New(secretKey, nil)}
}

// CreatePaymentIntent creates an intent with automatic payment methods
// enabled.  Metadata keys are copied verbatim.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	if g.api == nil {
		return nil, ErrNotConfigured
	}
	if amountMinor <= 0 {
		return nil, fmt.Errorf("payment intent amount must be positive, got %d", amountMinor)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return nil, fmt.Errorf("stripe %s: %s", se.Type, se.Msg)
		}
		return nil, err
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}, nil
}
