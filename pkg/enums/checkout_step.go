package enums

import "fmt"

// CheckoutStep identifies the shopper's position in the checkout flow.
type CheckoutStep string

const (
	CheckoutStepCart     CheckoutStep = "cart"
	CheckoutStepShipping CheckoutStep = "shipping"
	CheckoutStepBilling  CheckoutStep = "billing"
	CheckoutStepPayment  CheckoutStep = "payment"
	CheckoutStepReview   CheckoutStep = "review"
)

var orderedCheckoutSteps = []CheckoutStep{
	CheckoutStepCart,
	CheckoutStepShipping,
	CheckoutStepBilling,
	CheckoutStepPayment,
	CheckoutStepReview,
}

// IsValid reports whether the value matches a known checkout step.
func (s CheckoutStep) IsValid() bool {
	for _, candidate := range orderedCheckoutSteps {
		if candidate == s {
			return true
		}
	}
	return false
}

// Index returns the step's position in the flow, cart being 0.
func (s CheckoutStep) Index() int {
	for i, candidate := range orderedCheckoutSteps {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Next returns the following step, or the step itself when already at review.
func (s CheckoutStep) Next() CheckoutStep {
	idx := s.Index()
	if idx < 0 || idx >= len(orderedCheckoutSteps)-1 {
		return s
	}
	return orderedCheckoutSteps[idx+1]
}

// Prev returns the preceding step, or the step itself when already at cart.
func (s CheckoutStep) Prev() CheckoutStep {
	idx := s.Index()
	if idx <= 0 {
		return s
	}
	return orderedCheckoutSteps[idx-1]
}

// ParseCheckoutStep converts the raw string to a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range orderedCheckoutSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}
