package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fungalflux/storefront-backend/api/responses"
	"github.com/fungalflux/storefront-backend/internal/pricing"
	productsvc "github.com/fungalflux/storefront-backend/internal/products"
	"github.com/fungalflux/storefront-backend/pkg/db/models"
	"github.com/fungalflux/storefront-backend/pkg/enums"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/logger"
)

// ProductList serves the public catalog, optionally filtered by category or
// the featured flag.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter productsvc.ListFilter

		if raw := r.URL.Query().Get("category"); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			filter.Category = category
		}
		switch r.URL.Query().Get("featured") {
		case "true":
			featured := true
			filter.Featured = &featured
		case "false":
			featured := false
			filter.Featured = &featured
		}

		records, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]productResponse, 0, len(records))
		for _, record := range records {
			out = append(out, newProductResponse(&record))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProductDetail serves one catalog listing.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		record, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(record))
	}
}

type productResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	PriceCents    int64     `json:"price_cents"`
	Price         string    `json:"price"`
	ImageURL      string    `json:"image_url,omitempty"`
	StockQuantity int       `json:"stock_quantity"`
	InStock       bool      `json:"in_stock"`
	Featured      bool      `json:"featured"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newProductResponse(record *models.Product) productResponse {
	return productResponse{
		ID:            record.ID,
		Name:          record.Name,
		Description:   record.Description,
		Category:      string(record.Category),
		PriceCents:    record.PriceCents,
		Price:         pricing.FormatCents(record.PriceCents),
		ImageURL:      record.ImageURL,
		StockQuantity: record.StockQuantity,
		InStock:       record.InStock(),
		Featured:      record.Featured,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}
