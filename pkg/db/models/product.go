package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fungalflux/storefront-backend/pkg/enums"
)

// Product is the canonical catalog listing. The storefront reads snapshots;
// writes go through the admin back-office.
type Product struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string                `gorm:"column:name;not null"`
	Description   string                `gorm:"column:description;not null;default:''"`
	Category      enums.ProductCategory `gorm:"column:category;not null"`
	PriceCents    int64                 `gorm:"column:price_cents;not null"`
	ImageURL      string                `gorm:"column:image_url;not null;default:''"`
	StockQuantity int                   `gorm:"column:stock_quantity;not null;default:0"`
	Featured      bool                  `gorm:"column:featured;not null;default:false"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// InStock derives availability from the stock count.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}
