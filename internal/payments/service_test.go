package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/fungalflux/storefront-backend/internal/checkout"
	"github.com/fungalflux/storefront-backend/internal/pricing"
	"github.com/fungalflux/storefront-backend/pkg/config"
	"github.com/fungalflux/storefront-backend/pkg/db/models"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/stripe"
)

type stubGateway struct {
	created    []int64
	createErr  error
	intents    map[string]*stripe.Intent
	nextID     string
	nextSecret string
}

func (g *stubGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*stripe.Intent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, amountCents)
	intent := &stripe.Intent{
		ID:           g.nextID,
		ClientSecret: g.nextSecret,
		AmountCents:  amountCents,
		Status:       "requires_payment_method",
	}
	if g.intents == nil {
		g.intents = map[string]*stripe.Intent{}
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *stubGateway) RetrieveIntent(ctx context.Context, intentID string) (*stripe.Intent, error) {
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, errors.New("no such intent")
	}
	return intent, nil
}

type stubCarts struct {
	subtotal int64
}

func (s *stubCarts) Get(ctx context.Context, sessionID string) (*models.Cart, error) {
	record := &models.Cart{SessionID: sessionID}
	if s.subtotal > 0 {
		record.Items = []models.CartItem{{Quantity: 1, UnitPriceCents: s.subtotal}}
	}
	return record, nil
}

type stubSessions struct {
	session   *checkout.Session
	succeeded string
}

func (s *stubSessions) Get(ctx context.Context, sessionID string) (*checkout.Session, error) {
	if s.session == nil {
		s.session = checkout.NewSession(sessionID)
	}
	return s.session, nil
}

func (s *stubSessions) RecordPaymentIntent(ctx context.Context, sessionID, intentID string, amountCents int64) (*checkout.Session, error) {
	s.session.PaymentIntentID = intentID
	s.session.AmountCents = amountCents
	return s.session, nil
}

func (s *stubSessions) MarkPaymentSucceeded(ctx context.Context, sessionID, intentID string) (*checkout.Session, error) {
	s.succeeded = intentID
	return s.session, nil
}

func testCalculator() pricing.Calculator {
	return pricing.NewCalculator(config.CheckoutConfig{
		FreeShippingThresholdCents: 5000,
		FlatShippingCents:          999,
		TaxRateBasisPoints:         800,
	})
}

func TestCreateIntentUsesRecomputedTotal(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{nextID: "pi_1", nextSecret: "cs_1"}
	sessions := &stubSessions{}
	svc, err := NewService(gateway, &stubCarts{subtotal: 2499}, sessions, testCalculator(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	handle, err := svc.CreateIntent(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	// 2499 subtotal + 999 shipping + 200 tax.
	if handle.AmountCents != 3698 {
		t.Fatalf("expected amount 3698, got %d", handle.AmountCents)
	}
	if handle.PaymentIntentID != "pi_1" || handle.ClientSecret != "cs_1" {
		t.Fatalf("unexpected handle: %+v", handle)
	}
	if sessions.session.PaymentIntentID != "pi_1" {
		t.Fatal("expected intent recorded on checkout session")
	}
}

func TestCreateIntentRejectsTinyAmount(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{nextID: "pi_1"}
	svc, err := NewService(gateway, &stubCarts{subtotal: 0}, &stubSessions{}, testCalculator(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.CreateIntent(context.Background(), "sess-1")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(gateway.created) != 0 {
		t.Fatal("expected no gateway call for invalid amount")
	}
}

func TestCreateIntentReusesUnchangedTotal(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{nextID: "pi_1", nextSecret: "cs_1"}
	sessions := &stubSessions{}
	svc, err := NewService(gateway, &stubCarts{subtotal: 2499}, sessions, testCalculator(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	if _, err := svc.CreateIntent(ctx, "sess-1"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	gateway.nextID = "pi_2"
	handle, err := svc.CreateIntent(ctx, "sess-1")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if handle.PaymentIntentID != "pi_1" {
		t.Fatalf("expected reused intent pi_1, got %s", handle.PaymentIntentID)
	}
	if len(gateway.created) != 1 {
		t.Fatalf("expected single gateway create, got %d", len(gateway.created))
	}
}

func TestCreateIntentReplacesOnChangedTotal(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{nextID: "pi_1", nextSecret: "cs_1"}
	sessions := &stubSessions{}
	carts := &stubCarts{subtotal: 2499}
	svc, err := NewService(gateway, carts, sessions, testCalculator(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	if _, err := svc.CreateIntent(ctx, "sess-1"); err != nil {
		t.Fatalf("first create: %v", err)
	}

	carts.subtotal = 5500
	gateway.nextID = "pi_2"
	handle, err := svc.CreateIntent(ctx, "sess-1")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if handle.PaymentIntentID != "pi_2" {
		t.Fatalf("expected fresh intent, got %s", handle.PaymentIntentID)
	}
	// 5500 subtotal + free shipping + 440 tax.
	if handle.AmountCents != 5940 {
		t.Fatalf("expected amount 5940, got %d", handle.AmountCents)
	}
}

func TestCreateIntentGatewayFailure(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{createErr: errors.New("processor down")}
	svc, err := NewService(gateway, &stubCarts{subtotal: 2499}, &stubSessions{}, testCalculator(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.CreateIntent(context.Background(), "sess-1")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !pkgerrors.IsRetryable(err) {
		t.Fatal("expected gateway failure to be retryable")
	}
}

func TestConfirmPaymentAdvancesOnSuccess(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{intents: map[string]*stripe.Intent{
		"pi_1": {ID: "pi_1", Status: "succeeded", CardLast4: "4242", AmountCents: 3698},
	}}
	sessions := &stubSessions{session: checkout.NewSession("sess-1")}
	svc, err := NewService(gateway, &stubCarts{subtotal: 2499}, sessions, testCalculator(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.ConfirmPayment(context.Background(), "sess-1", "pi_1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !result.Succeeded || result.Last4 != "4242" || result.ReferenceID != "pi_1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if sessions.succeeded != "pi_1" {
		t.Fatal("expected session advanced to review")
	}
}

func TestConfirmPaymentDeclined(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{intents: map[string]*stripe.Intent{
		"pi_1": {ID: "pi_1", Status: "requires_payment_method", FailureMessage: "Your card was declined."},
	}}
	sessions := &stubSessions{session: checkout.NewSession("sess-1")}
	svc, err := NewService(gateway, &stubCarts{subtotal: 2499}, sessions, testCalculator(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.ConfirmPayment(context.Background(), "sess-1", "pi_1")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentDeclined {
		t.Fatalf("expected payment declined, got %v", err)
	}
	if typed.Message() != "Your card was declined." {
		t.Fatalf("expected gateway message surfaced, got %q", typed.Message())
	}
	if sessions.succeeded != "" {
		t.Fatal("session must not advance on declined payment")
	}
}

func TestSummaryFallsBackToMaskedDigits(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{intents: map[string]*stripe.Intent{
		"pi_1": {ID: "pi_1", Status: "succeeded"},
	}}
	svc, err := NewService(gateway, &stubCarts{subtotal: 2499}, &stubSessions{}, testCalculator(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.Summary(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if result.Last4 != "****" {
		t.Fatalf("expected masked digits, got %q", result.Last4)
	}
}
