package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fungalflux/storefront-backend/api/middleware"
	"github.com/fungalflux/storefront-backend/api/responses"
	"github.com/fungalflux/storefront-backend/api/validators"
	ordersvc "github.com/fungalflux/storefront-backend/internal/orders"
	"github.com/fungalflux/storefront-backend/internal/pricing"
	"github.com/fungalflux/storefront-backend/pkg/db/models"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/logger"
	"github.com/fungalflux/storefront-backend/pkg/types"
)

// OrderSubmit turns the paid checkout into a persisted order.
func OrderSubmit(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload submitOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SubmitOrder(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.PaymentIntentID, payload.PaymentLast4)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// OrderList serves the session's order history, newest first.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListOrders(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(records))
		for _, record := range records {
			out = append(out, newOrderResponse(&record))
		}
		responses.WriteSuccess(w, out)
	}
}

// OrderDetail serves one order for the confirmation page.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.GetOrder(r.Context(), middleware.SessionIDFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type submitOrderRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	PaymentLast4    string `json:"payment_last4" validate:"omitempty,len=4"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	Status           string              `json:"status"`
	ShippingAddress  types.Address       `json:"shipping_address"`
	BillingAddress   types.Address       `json:"billing_address"`
	SubtotalCents    int64               `json:"subtotal_cents"`
	ShippingCents    int64               `json:"shipping_cents"`
	TaxCents         int64               `json:"tax_cents"`
	TotalCents       int64               `json:"total_cents"`
	Subtotal         string              `json:"subtotal"`
	Shipping         string              `json:"shipping"`
	Tax              string              `json:"tax"`
	Total            string              `json:"total"`
	PaymentLast4     string              `json:"payment_last4"`
	OrderNotes       string              `json:"order_notes,omitempty"`
	DeliveryEstimate *time.Time          `json:"delivery_estimate,omitempty"`
	TrackingNumber   string              `json:"tracking_number,omitempty"`
	Items            []orderItemResponse `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	ProductImage   string    `json:"product_image,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
	Quantity       int       `json:"quantity"`
	TotalCents     int64     `json:"total_cents"`
	Total          string    `json:"total"`
}

func newOrderResponse(record *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductImage:   item.ProductImage,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      pricing.FormatCents(item.UnitPriceCents),
			Quantity:       item.Quantity,
			TotalCents:     item.TotalCents,
			Total:          pricing.FormatCents(item.TotalCents),
		})
	}

	out := orderResponse{
		ID:               record.ID,
		OrderNumber:      record.OrderNumber,
		Status:           string(record.Status),
		ShippingAddress:  record.ShippingAddress,
		BillingAddress:   record.BillingAddress,
		SubtotalCents:    record.SubtotalCents,
		ShippingCents:    record.ShippingCents,
		TaxCents:         record.TaxCents,
		TotalCents:       record.TotalCents,
		Subtotal:         pricing.FormatCents(record.SubtotalCents),
		Shipping:         pricing.FormatCents(record.ShippingCents),
		Tax:              pricing.FormatCents(record.TaxCents),
		Total:            pricing.FormatCents(record.TotalCents),
		PaymentLast4:     record.PaymentLast4,
		DeliveryEstimate: record.DeliveryEstimate,
		Items:            items,
		CreatedAt:        record.CreatedAt,
	}
	if record.OrderNotes != nil {
		out.OrderNotes = *record.OrderNotes
	}
	if record.TrackingNumber != nil {
		out.TrackingNumber = *record.TrackingNumber
	}
	return out
}
