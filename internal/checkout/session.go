package checkout

import (
	"time"

	"github.com/fungalflux/storefront-backend/pkg/enums"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/types"
)

// Session is the durable checkout blob. Every mutation is persisted so a
// shopper can reload mid-checkout and resume at the same step with the same
// addresses.
type Session struct {
	SessionID         string             `json:"session_id"`
	CurrentStep       enums.CheckoutStep `json:"current_step"`
	ShippingAddress   types.Address      `json:"shipping_address"`
	BillingAddress    types.Address      `json:"billing_address"`
	UseSameAsShipping bool               `json:"use_same_as_shipping"`
	OrderNotes        string             `json:"order_notes"`
	PaymentIntentID   string             `json:"payment_intent_id,omitempty"`
	AmountCents       int64              `json:"amount_cents,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewSession returns a fresh session at the cart step. Billing defaults to
// mirroring shipping until the shopper opts out.
func NewSession(sessionID string) *Session {
	return &Session{
		SessionID:         sessionID,
		CurrentStep:       enums.CheckoutStepCart,
		UseSameAsShipping: true,
		UpdatedAt:         time.Now().UTC(),
	}
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// stepSatisfied reports whether the data required to leave the given step is
// present. It checks presence only; field-level validation happens before an
// address is ever stored.
func (s *Session) stepSatisfied(step enums.CheckoutStep) bool {
	switch step {
	case enums.CheckoutStepCart:
		return true
	case enums.CheckoutStepShipping:
		return !s.ShippingAddress.IsZero()
	case enums.CheckoutStepBilling:
		return s.UseSameAsShipping || !s.BillingAddress.IsZero()
	case enums.CheckoutStepPayment:
		return s.PaymentIntentID != ""
	default:
		return false
	}
}

// advanceTo moves the machine forward to target, verifying every intermediate
// step's exit condition. Moving backward is always allowed.
func (s *Session) advanceTo(target enums.CheckoutStep) error {
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout step")
	}
	if target.Index() <= s.CurrentStep.Index() {
		s.CurrentStep = target
		s.touch()
		return nil
	}
	for step := s.CurrentStep; step != target; step = step.Next() {
		if !s.stepSatisfied(step) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout step "+string(step)+" is incomplete").
				WithDetails(map[string]string{"step": string(step)})
		}
	}
	s.CurrentStep = target
	s.touch()
	return nil
}

// Back steps the machine back by one. At the cart step it is a no-op; leaving
// checkout entirely is a navigation concern, not session state.
func (s *Session) Back() {
	s.CurrentStep = s.CurrentStep.Prev()
	s.touch()
}

// SetShippingAddress stores the shipping address and, while the
// same-as-shipping flag is set, mirrors it into billing.
func (s *Session) SetShippingAddress(addr types.Address) {
	s.ShippingAddress = addr
	if s.UseSameAsShipping {
		s.BillingAddress = addr
	}
	s.touch()
}

// SetBillingAddress stores a distinct billing address and clears the
// same-as-shipping flag.
func (s *Session) SetBillingAddress(addr types.Address) {
	s.BillingAddress = addr
	s.UseSameAsShipping = false
	s.touch()
}

// SetUseSameAsShipping toggles the mirror flag, re-syncing billing from
// shipping when enabled.
func (s *Session) SetUseSameAsShipping(useSame bool) {
	s.UseSameAsShipping = useSame
	if useSame {
		s.BillingAddress = s.ShippingAddress
	}
	s.touch()
}

// SetPaymentIntent records the active payment authorization. A new intent id
// (for example after the cart total changed) replaces the previous one and
// pulls the machine back from review if it had already advanced.
func (s *Session) SetPaymentIntent(intentID string, amountCents int64) {
	if s.PaymentIntentID != intentID && s.CurrentStep == enums.CheckoutStepReview {
		s.CurrentStep = enums.CheckoutStepPayment
	}
	s.PaymentIntentID = intentID
	s.AmountCents = amountCents
	s.touch()
}

// resetToCart forces the machine back to the cart step, dropping any payment
// authorization. Addresses are kept so re-entry is cheap.
func (s *Session) resetToCart() {
	s.CurrentStep = enums.CheckoutStepCart
	s.PaymentIntentID = ""
	s.AmountCents = 0
	s.touch()
}
