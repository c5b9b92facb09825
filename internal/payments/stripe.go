package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/Megamind2600/resumerocketpro/internal/records"
)

type intentsAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway implements Gateway with Stripe PaymentIntents.
type StripeGateway struct {
	intents intentsAPI
}

// NewStripeGateway builds a gateway for the secret key.
func NewStripeGateway(secretKey string) (*StripeGateway, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{intents: sc.PaymentIntents}, nil
}

// CreateIntent implements Gateway.
func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := g.intents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("stripe create intent: %w", err)
	}
	return fromStripe(pi), nil
}

// GetIntent implements Gateway.
func (g *StripeGateway) GetIntent(ctx context.Context, id string) (Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.intents.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return Intent{}, fmt.Errorf("%w: %s", ErrIntentNotFound, id)
		}
		return Intent{}, fmt.Errorf("stripe get intent %s: %w", id, err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) Intent {
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       normalizeStripeStatus(pi.Status),
		RawStatus:    string(pi.Status),
	}
}

// A requires_payment_method intent can still be retried by the client, so it stays pending.
func normalizeStripeStatus(status stripe.PaymentIntentStatus) records.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return records.PaymentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return records.PaymentFailed
	default:
		return records.PaymentPending
	}
}
