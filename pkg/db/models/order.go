package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fungalflux/storefront-backend/pkg/enums"
	"github.com/fungalflux/storefront-backend/pkg/types"
)

// Order is the immutable record of a completed purchase. The storefront
// creates it exactly once; status transitions afterwards belong to the
// fulfillment system.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string            `gorm:"column:order_number;not null;uniqueIndex"`
	SessionID        string            `gorm:"column:session_id;not null;index"`
	Status           enums.OrderStatus `gorm:"column:status;not null;default:'confirmed'"`
	ShippingAddress  types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress   types.Address     `gorm:"column:billing_address;type:jsonb;serializer:json"`
	SubtotalCents    int64             `gorm:"column:subtotal_cents;not null"`
	ShippingCents    int64             `gorm:"column:shipping_cents;not null"`
	TaxCents         int64             `gorm:"column:tax_cents;not null"`
	TotalCents       int64             `gorm:"column:total_cents;not null"`
	PaymentIntentID  string            `gorm:"column:payment_intent_id;not null;uniqueIndex"`
	PaymentLast4     string            `gorm:"column:payment_last4;not null"`
	OrderNotes       *string           `gorm:"column:order_notes"`
	DeliveryEstimate *time.Time        `gorm:"column:delivery_estimate"`
	TrackingNumber   *string           `gorm:"column:tracking_number"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
}
