package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/fungalflux/storefront-backend/internal/checkout"
	"github.com/fungalflux/storefront-backend/internal/pricing"
	"github.com/fungalflux/storefront-backend/pkg/db/models"
	"github.com/fungalflux/storefront-backend/pkg/enums"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/metrics"
	"github.com/fungalflux/storefront-backend/pkg/stripe"
)

const (
	currency       = "usd"
	minAmountCents = 50
	maskedLast4    = "****"
)

// Gateway is the payment processor surface the service depends on.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*stripe.Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*stripe.Intent, error)
}

type cartLoader interface {
	Get(ctx context.Context, sessionID string) (*models.Cart, error)
}

type sessionFlow interface {
	Get(ctx context.Context, sessionID string) (*checkout.Session, error)
	RecordPaymentIntent(ctx context.Context, sessionID, intentID string, amountCents int64) (*checkout.Session, error)
	MarkPaymentSucceeded(ctx context.Context, sessionID, intentID string) (*checkout.Session, error)
}

// IntentHandle is returned to the client so it can confirm the charge with
// the gateway's browser SDK.
type IntentHandle struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
}

// Result is the server-side view of a settled (or failed) authorization.
type Result struct {
	ReferenceID string
	Last4       string
	Succeeded   bool
	Status      string
	Message     string
}

// Service coordinates payment authorizations against the live cart total.
type Service interface {
	CreateIntent(ctx context.Context, sessionID string) (*IntentHandle, error)
	ConfirmPayment(ctx context.Context, sessionID, intentID string) (*Result, error)
	Summary(ctx context.Context, intentID string) (*Result, error)
}

type service struct {
	gateway  Gateway
	carts    cartLoader
	sessions sessionFlow
	calc     pricing.Calculator
	funnel   *metrics.CheckoutMetrics
}

// NewService builds the payments service. The funnel metrics are optional.
func NewService(gateway Gateway, carts cartLoader, sessions sessionFlow, calc pricing.Calculator, funnel *metrics.CheckoutMetrics) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart loader required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("checkout flow required")
	}
	return &service{gateway: gateway, carts: carts, sessions: sessions, calc: calc, funnel: funnel}, nil
}

// CreateIntent authorizes the current cart total. The amount is always
// recomputed from the live cart; an existing authorization is reused while
// the total is unchanged and still confirmable, otherwise a fresh intent
// replaces it.
func (s *service) CreateIntent(ctx context.Context, sessionID string) (*IntentHandle, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	record, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	totals := s.calc.Compute(record.SubtotalCents())
	if totals.TotalCents < minAmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("amount must be at least %d cents", minAmountCents))
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.PaymentIntentID != "" && session.AmountCents == totals.TotalCents {
		existing, err := s.gateway.RetrieveIntent(ctx, session.PaymentIntentID)
		if err == nil && reusable(existing.Status) {
			return &IntentHandle{
				PaymentIntentID: existing.ID,
				ClientSecret:    existing.ClientSecret,
				AmountCents:     existing.AmountCents,
			}, nil
		}
	}

	intent, err := s.gateway.CreateIntent(ctx, totals.TotalCents, currency, map[string]string{
		"order_type":    "storefront",
		"session_id":    sessionID,
		"display_total": pricing.FormatCents(totals.TotalCents),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment authorization")
	}

	if _, err := s.sessions.RecordPaymentIntent(ctx, sessionID, intent.ID, intent.AmountCents); err != nil {
		return nil, err
	}
	s.funnel.IncIntentCreated()

	return &IntentHandle{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     intent.AmountCents,
	}, nil
}

// ConfirmPayment checks the authorization's status with the gateway after
// the client reports a confirmation attempt. The client's claim is never
// trusted; only a gateway-verified success advances the checkout to review.
func (s *service) ConfirmPayment(ctx context.Context, sessionID, intentID string) (*Result, error) {
	result, err := s.Summary(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if !result.Succeeded {
		message := result.Message
		if message == "" {
			message = "payment was not completed"
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, message).
			WithDetails(map[string]string{"payment_intent_id": intentID, "status": result.Status})
	}

	if _, err := s.sessions.MarkPaymentSucceeded(ctx, sessionID, intentID); err != nil {
		return nil, err
	}
	return result, nil
}

// Summary retrieves the intent and condenses it to the two values order
// submission needs: the reference id and the card's last four digits.
func (s *service) Summary(ctx context.Context, intentID string) (*Result, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve payment authorization")
	}

	last4 := intent.CardLast4
	if last4 == "" {
		last4 = maskedLast4
	}
	return &Result{
		ReferenceID: intent.ID,
		Last4:       last4,
		Succeeded:   enums.PaymentStatus(intent.Status) == enums.PaymentStatusSucceeded,
		Status:      intent.Status,
		Message:     intent.FailureMessage,
	}, nil
}

// reusable reports whether an intent can still be confirmed by the client.
func reusable(status string) bool {
	switch status {
	case "requires_payment_method", "requires_confirmation", "requires_action", "processing":
		return true
	default:
		return false
	}
}
