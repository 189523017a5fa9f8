package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fungalflux/storefront-backend/api/middleware"
	"github.com/fungalflux/storefront-backend/api/responses"
	"github.com/fungalflux/storefront-backend/api/validators"
	cartsvc "github.com/fungalflux/storefront-backend/internal/cart"
	"github.com/fungalflux/storefront-backend/internal/pricing"
	"github.com/fungalflux/storefront-backend/pkg/db/models"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/logger"
)

// CartGet serves the session's cart with derived totals.
func CartGet(svc cartsvc.Service, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record, calc))
	}
}

// CartAddItem merges a product into the cart.
func CartAddItem(svc cartsvc.Service, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddItem(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(record, calc))
	}
}

// CartUpdateItem changes a line's quantity; zero removes the line.
func CartUpdateItem(svc cartsvc.Service, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.UpdateQuantity(r.Context(), middleware.SessionIDFromContext(r.Context()), productID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record, calc))
	}
}

// CartRemoveItem drops a line regardless of quantity.
func CartRemoveItem(svc cartsvc.Service, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		record, err := svc.RemoveItem(r.Context(), middleware.SessionIDFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record, calc))
	}
}

// CartClear empties the cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Clear(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

type cartResponse struct {
	SessionID     string             `json:"session_id"`
	Items         []cartItemResponse `json:"items"`
	TotalItems    int                `json:"total_items"`
	SubtotalCents int64              `json:"subtotal_cents"`
	ShippingCents int64              `json:"shipping_cents"`
	TaxCents      int64              `json:"tax_cents"`
	TotalCents    int64              `json:"total_cents"`
	Subtotal      string             `json:"subtotal"`
	Shipping      string             `json:"shipping"`
	Tax           string             `json:"tax"`
	Total         string             `json:"total"`
}

type cartItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	ProductImage   string    `json:"product_image,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
	LineTotal      string    `json:"line_total"`
	AddedAt        time.Time `json:"added_at"`
}

func newCartResponse(record *models.Cart, calc pricing.Calculator) cartResponse {
	items := make([]cartItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, cartItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductImage:   item.ProductImage,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      pricing.FormatCents(item.UnitPriceCents),
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents(),
			LineTotal:      pricing.FormatCents(item.LineTotalCents()),
			AddedAt:        item.CreatedAt,
		})
	}

	totals := calc.Compute(record.SubtotalCents())
	return cartResponse{
		SessionID:     record.SessionID,
		Items:         items,
		TotalItems:    record.TotalItems(),
		SubtotalCents: totals.SubtotalCents,
		ShippingCents: totals.ShippingCents,
		TaxCents:      totals.TaxCents,
		TotalCents:    totals.TotalCents,
		Subtotal:      pricing.FormatCents(totals.SubtotalCents),
		Shipping:      pricing.FormatCents(totals.ShippingCents),
		Tax:           pricing.FormatCents(totals.TaxCents),
		Total:         pricing.FormatCents(totals.TotalCents),
	}
}
