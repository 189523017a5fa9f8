package controllers

import (
	"net/http"

	"github.com/fungalflux/storefront-backend/api/middleware"
	"github.com/fungalflux/storefront-backend/api/responses"
	"github.com/fungalflux/storefront-backend/api/validators"
	paymentsvc "github.com/fungalflux/storefront-backend/internal/payments"
	"github.com/fungalflux/storefront-backend/pkg/logger"
)

// PaymentIntentCreate authorizes the live cart total with the gateway and
// returns the handle the browser SDK needs to collect the card.
func PaymentIntentCreate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := svc.CreateIntent(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, intentResponse{
			ClientSecret:    handle.ClientSecret,
			PaymentIntentID: handle.PaymentIntentID,
			AmountCents:     handle.AmountCents,
		})
	}
}

// PaymentConfirm verifies a confirmation attempt against the gateway and,
// on success, advances the checkout to review.
func PaymentConfirm(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ConfirmPayment(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.PaymentIntentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, confirmResponse{
			PaymentIntentID: result.ReferenceID,
			Status:          result.Status,
			Last4:           result.Last4,
			Succeeded:       result.Succeeded,
		})
	}
}

type confirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type intentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	AmountCents     int64  `json:"amount_cents"`
}

type confirmResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
	Last4           string `json:"last4"`
	Succeeded       bool   `json:"succeeded"`
}
