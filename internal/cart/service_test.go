package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fungalflux/storefront-backend/pkg/db/models"
	"github.com/fungalflux/storefront-backend/pkg/enums"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (t testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type mapProductLoader struct {
	products map[uuid.UUID]*models.Product
}

func (m mapProductLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := m.products[id]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// setupCartTestDB opens a private in-memory database. The DDL is written by
// hand because sqlite rejects the postgres uuid defaults on the models.
func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_image TEXT NOT NULL DEFAULT '',
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`
	if err := conn.Exec(carts).Error; err != nil {
		t.Fatalf("create carts table: %v", err)
	}
	if err := conn.Exec(cartItems).Error; err != nil {
		t.Fatalf("create cart_items table: %v", err)
	}
	return conn
}

func newTestStack(t *testing.T, products ...*models.Product) (Service, *gorm.DB) {
	t.Helper()

	conn := setupCartTestDB(t)

	loader := mapProductLoader{products: map[uuid.UUID]*models.Product{}}
	for _, product := range products {
		loader.products[product.ID] = product
	}

	svc, err := NewService(NewRepository(conn), testTxRunner{db: conn}, loader)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func growKit(priceCents int64, stock int) *models.Product {
	return &models.Product{
		ID:            uuid.New(),
		Name:          "Lion's Mane Grow Kit",
		Category:      enums.ProductCategoryGrowKits,
		PriceCents:    priceCents,
		ImageURL:      "https://cdn.example.com/lions-mane.jpg",
		StockQuantity: stock,
	}
}

func TestAddItemCreatesLine(t *testing.T) {
	t.Parallel()

	product := growKit(2499, 10)
	svc, _ := newTestStack(t, product)

	record, err := svc.AddItem(context.Background(), "sess-1", product.ID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(record.Items))
	}
	if record.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", record.Items[0].Quantity)
	}
	if record.Items[0].UnitPriceCents != 2499 {
		t.Fatalf("expected snapshot price 2499, got %d", record.Items[0].UnitPriceCents)
	}
}

func TestAddItemMergesExistingLine(t *testing.T) {
	t.Parallel()

	product := growKit(2499, 10)
	svc, _ := newTestStack(t, product)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "sess-1", product.ID, 2); err != nil {
		t.Fatalf("first add: %v", err)
	}
	record, err := svc.AddItem(ctx, "sess-1", product.ID, 3)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(record.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(record.Items))
	}
	if record.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", record.Items[0].Quantity)
	}
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	product := growKit(2499, 10)
	svc, _ := newTestStack(t, product)

	for _, qty := range []int{0, -1} {
		_, err := svc.AddItem(context.Background(), "sess-1", product.ID, qty)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for qty %d, got %v", qty, err)
		}
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	t.Parallel()

	svc, _ := newTestStack(t)

	_, err := svc.AddItem(context.Background(), "sess-1", uuid.New(), 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddItemInsufficientStock(t *testing.T) {
	t.Parallel()

	product := growKit(2499, 3)
	svc, _ := newTestStack(t, product)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "sess-1", product.ID, 2); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := svc.AddItem(ctx, "sess-1", product.ID, 2)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAddItemOutOfStock(t *testing.T) {
	t.Parallel()

	product := growKit(2499, 0)
	svc, _ := newTestStack(t, product)

	_, err := svc.AddItem(context.Background(), "sess-1", product.ID, 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for out of stock product, got %v", err)
	}
}

func TestUpdateQuantityToZeroRemovesLine(t *testing.T) {
	t.Parallel()

	kit := growKit(2499, 10)
	culture := &models.Product{
		ID:            uuid.New(),
		Name:          "Oyster Liquid Culture",
		Category:      enums.ProductCategoryLiquidCultures,
		PriceCents:    1499,
		StockQuantity: 20,
	}
	svc, _ := newTestStack(t, kit, culture)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "sess-1", kit.ID, 3); err != nil {
		t.Fatalf("add kit: %v", err)
	}
	if _, err := svc.AddItem(ctx, "sess-1", culture.ID, 2); err != nil {
		t.Fatalf("add culture: %v", err)
	}

	record, err := svc.UpdateQuantity(ctx, "sess-1", kit.ID, 0)
	if err != nil {
		t.Fatalf("update to zero: %v", err)
	}

	if len(record.Items) != 1 {
		t.Fatalf("expected 1 remaining line, got %d", len(record.Items))
	}
	if record.TotalItems() != 2 {
		t.Fatalf("expected total items reduced by removed line's quantity, got %d", record.TotalItems())
	}
}

func TestUpdateQuantityMissingLine(t *testing.T) {
	t.Parallel()

	product := growKit(2499, 10)
	svc, _ := newTestStack(t, product)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "sess-1", product.ID, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_, err := svc.UpdateQuantity(ctx, "sess-1", uuid.New(), 2)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for missing line, got %v", err)
	}
}

func TestCartTotalsMatchLineSums(t *testing.T) {
	t.Parallel()

	kit := growKit(2499, 50)
	culture := &models.Product{
		ID:            uuid.New(),
		Name:          "Shiitake Liquid Culture",
		Category:      enums.ProductCategoryLiquidCultures,
		PriceCents:    1499,
		StockQuantity: 50,
	}
	supplies := &models.Product{
		ID:            uuid.New(),
		Name:          "Substrate Bag",
		Category:      enums.ProductCategorySupplies,
		PriceCents:    899,
		StockQuantity: 50,
	}
	svc, _ := newTestStack(t, kit, culture, supplies)
	ctx := context.Background()

	steps := []func() (*models.Cart, error){
		func() (*models.Cart, error) { return svc.AddItem(ctx, "sess-1", kit.ID, 2) },
		func() (*models.Cart, error) { return svc.AddItem(ctx, "sess-1", culture.ID, 1) },
		func() (*models.Cart, error) { return svc.AddItem(ctx, "sess-1", supplies.ID, 4) },
		func() (*models.Cart, error) { return svc.UpdateQuantity(ctx, "sess-1", supplies.ID, 2) },
		func() (*models.Cart, error) { return svc.AddItem(ctx, "sess-1", kit.ID, 1) },
		func() (*models.Cart, error) { return svc.RemoveItem(ctx, "sess-1", culture.ID) },
	}

	for i, step := range steps {
		record, err := step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}

		wantItems := 0
		var wantSubtotal int64
		for _, item := range record.Items {
			wantItems += item.Quantity
			wantSubtotal += item.UnitPriceCents * int64(item.Quantity)
		}
		if record.TotalItems() != wantItems {
			t.Fatalf("step %d: total items %d != %d", i, record.TotalItems(), wantItems)
		}
		if record.SubtotalCents() != wantSubtotal {
			t.Fatalf("step %d: subtotal %d != %d", i, record.SubtotalCents(), wantSubtotal)
		}
	}
}

func TestClearEmptiesCart(t *testing.T) {
	t.Parallel()

	product := growKit(2499, 10)
	svc, _ := newTestStack(t, product)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "sess-1", product.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	record, err := svc.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(record.Items) != 0 || record.TotalItems() != 0 {
		t.Fatalf("expected empty cart, got %+v", record)
	}
}

func TestCartsAreSessionScoped(t *testing.T) {
	t.Parallel()

	product := growKit(2499, 10)
	svc, _ := newTestStack(t, product)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "sess-1", product.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	other, err := svc.Get(ctx, "sess-2")
	if err != nil {
		t.Fatalf("get other session: %v", err)
	}
	if len(other.Items) != 0 {
		t.Fatalf("expected other session's cart to be empty, got %d items", len(other.Items))
	}
}
