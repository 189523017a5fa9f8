package controllers

import (
	"net/http"
	"time"

	"github.com/fungalflux/storefront-backend/api/middleware"
	"github.com/fungalflux/storefront-backend/api/responses"
	"github.com/fungalflux/storefront-backend/api/validators"
	checkoutsvc "github.com/fungalflux/storefront-backend/internal/checkout"
	"github.com/fungalflux/storefront-backend/pkg/logger"
	"github.com/fungalflux/storefront-backend/pkg/types"
)

// CheckoutGet serves the session's current checkout state, resuming where
// the shopper left off.
func CheckoutGet(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutSubmitShipping stores the shipping address and advances to billing.
func CheckoutSubmitShipping(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var addr types.Address
		if err := validators.DecodeJSONBody(r, &addr); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SubmitShipping(r.Context(), middleware.SessionIDFromContext(r.Context()), addr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutSubmitBilling stores a distinct billing address and advances to
// payment.
func CheckoutSubmitBilling(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var addr types.Address
		if err := validators.DecodeJSONBody(r, &addr); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SubmitBilling(r.Context(), middleware.SessionIDFromContext(r.Context()), addr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutSameAsShipping toggles the billing mirror flag.
func CheckoutSameAsShipping(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload sameAsShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SetSameAsShipping(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.UseSameAsShipping)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutNotes updates the optional order notes.
func CheckoutNotes(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload notesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.UpdateNotes(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.OrderNotes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutBack steps the flow back by one.
func CheckoutBack(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Back(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutReset abandons the stored checkout state.
func CheckoutReset(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Reset(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "reset"})
	}
}

type sameAsShippingRequest struct {
	UseSameAsShipping bool `json:"use_same_as_shipping"`
}

type notesRequest struct {
	OrderNotes string `json:"order_notes" validate:"max=1000"`
}

type sessionResponse struct {
	CurrentStep       string         `json:"current_step"`
	ShippingAddress   *types.Address `json:"shipping_address,omitempty"`
	BillingAddress    *types.Address `json:"billing_address,omitempty"`
	UseSameAsShipping bool           `json:"use_same_as_shipping"`
	OrderNotes        string         `json:"order_notes,omitempty"`
	PaymentIntentID   string         `json:"payment_intent_id,omitempty"`
	AmountCents       int64          `json:"amount_cents,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func newSessionResponse(session *checkoutsvc.Session) sessionResponse {
	out := sessionResponse{
		CurrentStep:       string(session.CurrentStep),
		UseSameAsShipping: session.UseSameAsShipping,
		OrderNotes:        session.OrderNotes,
		PaymentIntentID:   session.PaymentIntentID,
		AmountCents:       session.AmountCents,
		UpdatedAt:         session.UpdatedAt,
	}
	if !session.ShippingAddress.IsZero() {
		shipping := session.ShippingAddress
		out.ShippingAddress = &shipping
	}
	if !session.BillingAddress.IsZero() {
		billing := session.BillingAddress
		out.BillingAddress = &billing
	}
	return out
}
