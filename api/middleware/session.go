package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fungalflux/storefront-backend/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

// Session assigns an anonymous storefront session id when the client has
// none yet and seeds the request context with it. The cart, checkout, and
// order surfaces are all scoped to this id.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(sessionIDHeader)
			if sessionID == "" || uuid.Validate(sessionID) != nil {
				sessionID = uuid.NewString()
			}

			w.Header().Set(sessionIDHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
