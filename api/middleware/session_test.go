package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestSessionAssignsIDWhenMissing(t *testing.T) {
	var captured string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if captured == "" {
		t.Fatal("expected session id in context")
	}
	if err := uuid.Validate(captured); err != nil {
		t.Fatalf("assigned session id is not a uuid: %s", captured)
	}
	if resp.Header().Get("X-Session-Id") != captured {
		t.Fatalf("header %q does not match context id %q", resp.Header().Get("X-Session-Id"), captured)
	}
}

func TestSessionEchoesProvidedID(t *testing.T) {
	provided := uuid.NewString()

	var captured string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Id", provided)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if captured != provided {
		t.Fatalf("expected %s got %s", provided, captured)
	}
	if resp.Header().Get("X-Session-Id") != provided {
		t.Fatalf("header not echoed: %s", resp.Header().Get("X-Session-Id"))
	}
}

func TestSessionReplacesInvalidID(t *testing.T) {
	var captured string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Id", "definitely-not-a-uuid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if captured == "definitely-not-a-uuid" {
		t.Fatal("invalid id should have been replaced")
	}
	if err := uuid.Validate(captured); err != nil {
		t.Fatalf("replacement id is not a uuid: %s", captured)
	}
}
