package checkout

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fungalflux/storefront-backend/pkg/db/models"
	"github.com/fungalflux/storefront-backend/pkg/enums"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/types"
)

type memoryBlobStore struct {
	blobs map[string]string
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{blobs: map[string]string{}}
}

func (m *memoryBlobStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.blobs[key] = string(v)
	case string:
		m.blobs[key] = v
	}
	return nil
}

func (m *memoryBlobStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.blobs[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memoryBlobStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.blobs, key)
	}
	return nil
}

func (m *memoryBlobStore) CheckoutSessionKey(sessionID string) string {
	return "ff:checkout:" + sessionID
}

type stubCartLoader struct {
	itemCount int
	err       error
}

func (s *stubCartLoader) Get(ctx context.Context, sessionID string) (*models.Cart, error) {
	if s.err != nil {
		return nil, s.err
	}
	record := &models.Cart{SessionID: sessionID}
	for i := 0; i < s.itemCount; i++ {
		record.Items = append(record.Items, models.CartItem{Quantity: 1, UnitPriceCents: 100})
	}
	return record, nil
}

func validAddress() types.Address {
	return types.Address{
		FullName:   "Morel Forager",
		Email:      "morel@example.com",
		Phone:      "+15555550123",
		Line1:      "12 Spore Lane",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}
}

func newCheckoutStack(t *testing.T, carts *stubCartLoader) (Service, *memoryBlobStore) {
	t.Helper()
	blobs := newMemoryBlobStore()
	svc, err := NewService(NewRedisStore(blobs, time.Hour), carts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, blobs
}

func TestGetReturnsFreshSession(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})

	session, err := svc.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepCart {
		t.Fatalf("expected cart step, got %s", session.CurrentStep)
	}
	if !session.UseSameAsShipping {
		t.Fatal("expected same-as-shipping to default on")
	}
}

func TestSubmitShippingAdvancesAndSyncsBilling(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 2})
	addr := validAddress()

	session, err := svc.SubmitShipping(context.Background(), "sess-1", addr)
	if err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepBilling {
		t.Fatalf("expected billing step, got %s", session.CurrentStep)
	}
	if !session.BillingAddress.Equal(addr) {
		t.Fatal("expected billing mirrored from shipping")
	}
}

func TestSubmitShippingEmptyCart(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 0})

	_, err := svc.SubmitShipping(context.Background(), "sess-1", validAddress())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestSubmitShippingInvalidAddress(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})
	addr := validAddress()
	addr.Email = "not-an-email"
	addr.PostalCode = "!"

	_, err := svc.SubmitShipping(context.Background(), "sess-1", addr)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	fields, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected per-field details, got %T", typed.Details())
	}
	if _, present := fields["email"]; !present {
		t.Fatalf("expected email field error, got %v", fields)
	}
	if _, present := fields["postal_code"]; !present {
		t.Fatalf("expected postal_code field error, got %v", fields)
	}

	session, err := svc.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepCart {
		t.Fatalf("machine advanced despite invalid address: %s", session.CurrentStep)
	}
}

func TestSubmitBillingDistinctAddress(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})
	ctx := context.Background()

	if _, err := svc.SubmitShipping(ctx, "sess-1", validAddress()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	billing := validAddress()
	billing.FullName = "Invoice Dept"
	billing.Line1 = "400 Ledger Ave"

	session, err := svc.SubmitBilling(ctx, "sess-1", billing)
	if err != nil {
		t.Fatalf("submit billing: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepPayment {
		t.Fatalf("expected payment step, got %s", session.CurrentStep)
	}
	if session.UseSameAsShipping {
		t.Fatal("expected same-as-shipping cleared by distinct billing address")
	}
}

func TestSubmitBillingRequiresShipping(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})

	_, err := svc.SubmitBilling(context.Background(), "sess-1", validAddress())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestSameAsShippingToggleResyncsBilling(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})
	ctx := context.Background()
	shipping := validAddress()

	if _, err := svc.SubmitShipping(ctx, "sess-1", shipping); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	billing := validAddress()
	billing.FullName = "Invoice Dept"
	if _, err := svc.SubmitBilling(ctx, "sess-1", billing); err != nil {
		t.Fatalf("submit billing: %v", err)
	}

	session, err := svc.SetSameAsShipping(ctx, "sess-1", true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !session.BillingAddress.Equal(shipping) {
		t.Fatal("expected billing re-synced from shipping")
	}
}

func TestFullFlowToReview(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})
	ctx := context.Background()

	if _, err := svc.SubmitShipping(ctx, "sess-1", validAddress()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	session, err := svc.RecordPaymentIntent(ctx, "sess-1", "pi_test_123", 3698)
	if err != nil {
		t.Fatalf("record intent: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepPayment {
		t.Fatalf("expected payment step, got %s", session.CurrentStep)
	}

	session, err = svc.MarkPaymentSucceeded(ctx, "sess-1", "pi_test_123")
	if err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepReview {
		t.Fatalf("expected review step, got %s", session.CurrentStep)
	}
}

func TestMarkPaymentSucceededRejectsStaleIntent(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})
	ctx := context.Background()

	if _, err := svc.SubmitShipping(ctx, "sess-1", validAddress()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	if _, err := svc.RecordPaymentIntent(ctx, "sess-1", "pi_new", 3698); err != nil {
		t.Fatalf("record intent: %v", err)
	}

	_, err := svc.MarkPaymentSucceeded(ctx, "sess-1", "pi_old")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for superseded intent, got %v", err)
	}
}

func TestNewIntentPullsBackFromReview(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})
	ctx := context.Background()

	if _, err := svc.SubmitShipping(ctx, "sess-1", validAddress()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	if _, err := svc.RecordPaymentIntent(ctx, "sess-1", "pi_first", 3698); err != nil {
		t.Fatalf("first intent: %v", err)
	}
	if _, err := svc.MarkPaymentSucceeded(ctx, "sess-1", "pi_first"); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}

	session, err := svc.RecordPaymentIntent(ctx, "sess-1", "pi_second", 4200)
	if err != nil {
		t.Fatalf("second intent: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepPayment {
		t.Fatalf("expected machine pulled back to payment, got %s", session.CurrentStep)
	}
	if session.PaymentIntentID != "pi_second" || session.AmountCents != 4200 {
		t.Fatalf("expected replaced intent, got %s/%d", session.PaymentIntentID, session.AmountCents)
	}
}

func TestReloadResumesStepAndAddresses(t *testing.T) {
	t.Parallel()

	carts := &stubCartLoader{itemCount: 1}
	blobs := newMemoryBlobStore()
	svc, err := NewService(NewRedisStore(blobs, time.Hour), carts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	addr := validAddress()

	if _, err := svc.SubmitShipping(ctx, "sess-1", addr); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	// New service over the same blobs simulates a fresh process.
	reloaded, err := NewService(NewRedisStore(blobs, time.Hour), carts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	session, err := reloaded.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepBilling {
		t.Fatalf("expected resumed billing step, got %s", session.CurrentStep)
	}
	if !session.ShippingAddress.Equal(addr) {
		t.Fatal("expected shipping address to survive reload")
	}
}

func TestEmptiedCartForcesReset(t *testing.T) {
	t.Parallel()

	carts := &stubCartLoader{itemCount: 1}
	svc, _ := newCheckoutStack(t, carts)
	ctx := context.Background()

	if _, err := svc.SubmitShipping(ctx, "sess-1", validAddress()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	carts.itemCount = 0

	session, err := svc.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepCart {
		t.Fatalf("expected forced reset to cart, got %s", session.CurrentStep)
	}
	if session.PaymentIntentID != "" {
		t.Fatal("expected payment authorization dropped on reset")
	}
	if session.ShippingAddress.IsZero() {
		t.Fatal("expected addresses kept through reset")
	}
}

func TestBackStepsByOne(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})
	ctx := context.Background()

	if _, err := svc.SubmitShipping(ctx, "sess-1", validAddress()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}

	session, err := svc.Back(ctx, "sess-1")
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepShipping {
		t.Fatalf("expected shipping step, got %s", session.CurrentStep)
	}

	// Back at the cart step stays put.
	if _, err := svc.Back(ctx, "sess-1"); err != nil {
		t.Fatalf("back: %v", err)
	}
	session, err = svc.Back(ctx, "sess-1")
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if session.CurrentStep != enums.CheckoutStepCart {
		t.Fatalf("expected cart step, got %s", session.CurrentStep)
	}
}

func TestUpdateNotes(t *testing.T) {
	t.Parallel()

	svc, _ := newCheckoutStack(t, &stubCartLoader{itemCount: 1})
	ctx := context.Background()

	session, err := svc.UpdateNotes(ctx, "sess-1", "  leave at the side door ")
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if session.OrderNotes != "leave at the side door" {
		t.Fatalf("unexpected notes: %q", session.OrderNotes)
	}

	long := make([]byte, maxOrderNotesLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.UpdateNotes(ctx, "sess-1", string(long))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResetDeletesBlob(t *testing.T) {
	t.Parallel()

	svc, blobs := newCheckoutStack(t, &stubCartLoader{itemCount: 1})
	ctx := context.Background()

	if _, err := svc.SubmitShipping(ctx, "sess-1", validAddress()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	if err := svc.Reset(ctx, "sess-1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(blobs.blobs) != 0 {
		t.Fatalf("expected blob deleted, got %v", blobs.blobs)
	}
}
