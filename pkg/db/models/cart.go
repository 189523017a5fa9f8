package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds one browsing session's in-progress selection. At most one cart
// exists per session id.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID string     `gorm:"column:session_id;not null;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalItems sums the quantities across all lines.
func (c Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// SubtotalCents sums unit price times quantity across all lines, exact in
// integer cents.
func (c Cart) SubtotalCents() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.UnitPriceCents * int64(item.Quantity)
	}
	return subtotal
}
