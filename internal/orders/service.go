package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fungalflux/storefront-backend/internal/checkout"
	"github.com/fungalflux/storefront-backend/internal/payments"
	"github.com/fungalflux/storefront-backend/internal/pricing"
	"github.com/fungalflux/storefront-backend/pkg/db/models"
	"github.com/fungalflux/storefront-backend/pkg/enums"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/logger"
	"github.com/fungalflux/storefront-backend/pkg/metrics"
	"github.com/fungalflux/storefront-backend/pkg/redis"
)

const (
	// submitGuardTTL bounds how long a crashed submission can block a retry.
	submitGuardTTL = 2 * time.Minute

	guardScope = "order-submit"

	defaultListLimit = 50

	deliveryEstimateDays = 7
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartService interface {
	Get(ctx context.Context, sessionID string) (*models.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

type sessionStore interface {
	Load(ctx context.Context, sessionID string) (*checkout.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

type paymentVerifier interface {
	Summary(ctx context.Context, intentID string) (*payments.Result, error)
}

// Service owns the single write path that turns a paid checkout into a
// persisted order.
type Service interface {
	SubmitOrder(ctx context.Context, sessionID, paymentIntentID, last4 string) (*models.Order, error)
	GetOrder(ctx context.Context, sessionID string, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, sessionID string) ([]models.Order, error)
	ListAll(ctx context.Context, limit int) ([]models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	carts    cartService
	sessions sessionStore
	verifier paymentVerifier
	guard    redis.GuardStore
	calc     pricing.Calculator
	funnel   *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewService builds the order service. Funnel metrics and logger are optional.
func NewService(
	repo Repository,
	tx txRunner,
	carts cartService,
	sessions sessionStore,
	verifier paymentVerifier,
	guard redis.GuardStore,
	calc pricing.Calculator,
	funnel *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("payment verifier required")
	}
	if guard == nil {
		return nil, fmt.Errorf("guard store required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		carts:    carts,
		sessions: sessions,
		verifier: verifier,
		guard:    guard,
		calc:     calc,
		funnel:   funnel,
		logg:     logg,
	}, nil
}

// SubmitOrder persists the order for a gateway-confirmed payment. The call
// is idempotent on the payment intent id: a replay returns the order that
// was already created instead of writing a second one. On any failure the
// cart and checkout session are left untouched so the shopper can retry
// without re-entering addresses or paying again.
func (s *service) SubmitOrder(ctx context.Context, sessionID, paymentIntentID, last4 string) (*models.Order, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}

	if existing, err := s.findExisting(ctx, paymentIntentID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CurrentStep != enums.CheckoutStepReview {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout has not reached the review step")
	}
	if session.ShippingAddress.IsZero() || session.BillingAddress.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout addresses are incomplete")
	}
	if session.PaymentIntentID != paymentIntentID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment does not match the active authorization")
	}

	record, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.TotalItems() == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	result, err := s.verifier.Summary(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if !result.Succeeded {
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment has not succeeded").
			WithDetails(map[string]string{"status": result.Status})
	}
	if last4 == "" {
		last4 = result.Last4
	}

	totals := s.calc.Compute(record.SubtotalCents())
	// The recorded amount is what the gateway actually charged. A cart that
	// changed after confirmation must not produce an order whose persisted
	// total disagrees with the charge.
	if totals.TotalCents != session.AmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart total no longer matches the charged amount").
			WithDetails(map[string]int64{
				"charged_cents":    session.AmountCents,
				"cart_total_cents": totals.TotalCents,
			})
	}

	guardKey := s.guard.IdempotencyKey(guardScope, paymentIntentID)
	acquired, err := s.guard.SetNX(ctx, guardKey, sessionID, submitGuardTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire submission guard")
	}
	if !acquired {
		// A concurrent submission for the same payment is in flight. If it
		// already finished, return its order; otherwise refuse the duplicate.
		if existing, err := s.findExisting(ctx, paymentIntentID); err == nil && existing != nil {
			return existing, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "order submission already in progress for this payment")
	}

	order, err := s.persist(ctx, sessionID, session, record, totals, paymentIntentID, last4)
	if err != nil {
		// Release the guard so the shopper can retry immediately.
		_ = s.guard.Del(ctx, guardKey)
		s.funnel.IncOrderFailed()
		if s.logg != nil {
			s.logg.Error(ctx, "order submission failed after successful payment", err)
		}
		return nil, err
	}

	// Terminal cleanup. Failures here are logged, not surfaced: the order
	// exists and the shopper must see the confirmation.
	if err := s.carts.Clear(ctx, sessionID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderNumber(ctx, order.OrderNumber), "clearing cart after order placement failed")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderNumber(ctx, order.OrderNumber), "deleting checkout session after order placement failed")
	}

	s.funnel.IncOrderPlaced()
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderNumber(ctx, order.OrderNumber), "order placed")
	}
	return order, nil
}

func (s *service) persist(
	ctx context.Context,
	sessionID string,
	session *checkout.Session,
	record *models.Cart,
	totals pricing.Totals,
	paymentIntentID, last4 string,
) (*models.Order, error) {
	number, err := newOrderNumber(time.Now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}

	estimate := time.Now().UTC().AddDate(0, 0, deliveryEstimateDays)
	order := &models.Order{
		ID:               uuid.New(),
		OrderNumber:      number,
		SessionID:        sessionID,
		Status:           enums.OrderStatusConfirmed,
		ShippingAddress:  session.ShippingAddress,
		BillingAddress:   session.BillingAddress,
		SubtotalCents:    totals.SubtotalCents,
		ShippingCents:    totals.ShippingCents,
		TaxCents:         totals.TaxCents,
		TotalCents:       totals.TotalCents,
		PaymentIntentID:  paymentIntentID,
		PaymentLast4:     last4,
		DeliveryEstimate: &estimate,
	}
	if notes := strings.TrimSpace(session.OrderNotes); notes != "" {
		order.OrderNotes = &notes
	}
	for _, item := range record.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductImage:   item.ProductImage,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			TotalCents:     item.LineTotalCents(),
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).Create(ctx, order)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}
	return order, nil
}

func (s *service) findExisting(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	existing, err := s.repo.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up existing order")
	}
	return existing, nil
}

// GetOrder loads one order for the confirmation page. The session id must
// match; orders are not visible across sessions.
func (s *service) GetOrder(ctx context.Context, sessionID string, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if sessionID != "" && order.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// ListOrders returns the session's orders, newest first.
func (s *service) ListOrders(ctx context.Context, sessionID string) ([]models.Order, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	records, err := s.repo.ListBySession(ctx, sessionID, defaultListLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return records, nil
}

// ListAll returns recent orders across all sessions for the back office.
func (s *service) ListAll(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return records, nil
}
