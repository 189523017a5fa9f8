package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/fungalflux/storefront-backend/pkg/db/models"
	"github.com/fungalflux/storefront-backend/pkg/enums"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/types"
)

const maxOrderNotesLength = 1000

type cartLoader interface {
	Get(ctx context.Context, sessionID string) (*models.Cart, error)
}

// Service drives the multi-step checkout flow. Forward transitions validate
// their inputs; every mutation is written through to the session store.
type Service interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	SubmitShipping(ctx context.Context, sessionID string, addr types.Address) (*Session, error)
	SubmitBilling(ctx context.Context, sessionID string, addr types.Address) (*Session, error)
	SetSameAsShipping(ctx context.Context, sessionID string, useSame bool) (*Session, error)
	UpdateNotes(ctx context.Context, sessionID, notes string) (*Session, error)
	RecordPaymentIntent(ctx context.Context, sessionID, intentID string, amountCents int64) (*Session, error)
	MarkPaymentSucceeded(ctx context.Context, sessionID, intentID string) (*Session, error)
	Back(ctx context.Context, sessionID string) (*Session, error)
	Reset(ctx context.Context, sessionID string) error
}

type service struct {
	store Store
	carts cartLoader
}

// NewService builds the checkout service.
func NewService(store Store, carts cartLoader) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart loader required")
	}
	return &service{store: store, carts: carts}, nil
}

// Get loads the session, force-resetting it to the cart step if the cart has
// been emptied since the shopper last advanced. The reset is silent; stale
// state is never surfaced as a fault.
func (s *service) Get(ctx context.Context, sessionID string) (*Session, error) {
	return s.load(ctx, sessionID)
}

func (s *service) SubmitShipping(ctx context.Context, sessionID string, addr types.Address) (*Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CurrentStep == enums.CheckoutStepCart {
		if err := s.requireNonEmptyCart(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}

	session.SetShippingAddress(addr)
	if err := session.advanceTo(enums.CheckoutStepBilling); err != nil {
		return nil, err
	}
	return s.save(ctx, session)
}

func (s *service) SubmitBilling(ctx context.Context, sessionID string, addr types.Address) (*Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ShippingAddress.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shipping address must be submitted first")
	}
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}

	session.SetBillingAddress(addr)
	if err := session.advanceTo(enums.CheckoutStepPayment); err != nil {
		return nil, err
	}
	return s.save(ctx, session)
}

// SetSameAsShipping toggles the billing mirror flag. Enabling it acts as the
// shipping-aliased billing submission and advances past the billing step;
// disabling it leaves the machine in place until a distinct billing address
// arrives.
func (s *service) SetSameAsShipping(ctx context.Context, sessionID string, useSame bool) (*Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.SetUseSameAsShipping(useSame)
	if useSame && !session.ShippingAddress.IsZero() && session.CurrentStep == enums.CheckoutStepBilling {
		if err := session.advanceTo(enums.CheckoutStepPayment); err != nil {
			return nil, err
		}
	}
	return s.save(ctx, session)
}

func (s *service) UpdateNotes(ctx context.Context, sessionID, notes string) (*Session, error) {
	if len(notes) > maxOrderNotesLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order notes too long").
			WithDetails(map[string]string{"order_notes": fmt.Sprintf("must be at most %d characters", maxOrderNotesLength)})
	}

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.OrderNotes = strings.TrimSpace(notes)
	session.touch()
	return s.save(ctx, session)
}

// RecordPaymentIntent attaches a freshly created payment authorization to the
// session and moves the machine to the payment step. Called by the payments
// service, not exposed over HTTP directly.
func (s *service) RecordPaymentIntent(ctx context.Context, sessionID, intentID string, amountCents int64) (*Session, error) {
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.stepSatisfied(enums.CheckoutStepBilling) || session.ShippingAddress.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "addresses must be completed before payment")
	}

	session.SetPaymentIntent(intentID, amountCents)
	if err := session.advanceTo(enums.CheckoutStepPayment); err != nil {
		return nil, err
	}
	return s.save(ctx, session)
}

// MarkPaymentSucceeded advances the machine to review once the gateway has
// confirmed the charge. The intent id must match the one recorded on the
// session; a result arriving for a superseded authorization is discarded.
func (s *service) MarkPaymentSucceeded(ctx context.Context, sessionID, intentID string) (*Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.PaymentIntentID == "" || session.PaymentIntentID != intentID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment result does not match the active authorization")
	}

	if err := session.advanceTo(enums.CheckoutStepReview); err != nil {
		return nil, err
	}
	return s.save(ctx, session)
}

func (s *service) Back(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Back()
	return s.save(ctx, session)
}

// Reset discards the stored session entirely.
func (s *service) Reset(ctx context.Context, sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	return s.store.Delete(ctx, sessionID)
}

func (s *service) load(ctx context.Context, sessionID string) (*Session, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.CurrentStep != enums.CheckoutStepCart {
		record, err := s.carts.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if record.TotalItems() == 0 {
			session.resetToCart()
			return s.save(ctx, session)
		}
	}
	return session, nil
}

func (s *service) save(ctx context.Context, session *Session) (*Session, error) {
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) requireNonEmptyCart(ctx context.Context, sessionID string) error {
	record, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if record.TotalItems() == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	return nil
}

func validateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}
