package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
)

// Intent is the gateway-neutral view of a payment intent consumed by the
// payments service.
type Intent struct {
	ID             string
	ClientSecret   string
	AmountCents    int64
	Status         string
	CardLast4      string
	FailureMessage string
}

// CreateIntent registers a new payment intent for the given amount in minor
// units.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := c.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return fromStripeIntent(intent), nil
}

// RetrieveIntent loads the intent with its latest charge expanded so callers
// can read the settled card digits.
func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if intentID == "" {
		return nil, errors.New("payment intent id is required")
	}

	params := &stripe.PaymentIntentRetrieveParams{}
	params.AddExpand("latest_charge")

	intent, err := c.api.V1PaymentIntents.Retrieve(ctx, intentID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent %s: %w", intentID, err)
	}
	return fromStripeIntent(intent), nil
}

func fromStripeIntent(intent *stripe.PaymentIntent) *Intent {
	if intent == nil {
		return nil
	}

	out := &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  intent.Amount,
		Status:       string(intent.Status),
	}

	if intent.LatestCharge != nil {
		charge := intent.LatestCharge
		if charge.PaymentMethodDetails != nil && charge.PaymentMethodDetails.Card != nil {
			out.CardLast4 = charge.PaymentMethodDetails.Card.Last4
		}
		if charge.FailureMessage != "" {
			out.FailureMessage = charge.FailureMessage
		}
	}
	if out.FailureMessage == "" && intent.LastPaymentError != nil {
		out.FailureMessage = intent.LastPaymentError.Msg
	}

	return out
}
