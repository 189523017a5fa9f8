package controllers

import (
	"net/http"
	"strconv"

	"github.com/fungalflux/storefront-backend/api/responses"
	ordersvc "github.com/fungalflux/storefront-backend/internal/orders"
	"github.com/fungalflux/storefront-backend/pkg/logger"
)

// AdminOrderList serves recent orders across all sessions.
func AdminOrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}

		records, err := svc.ListAll(r.Context(), limit)
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
