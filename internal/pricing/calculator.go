package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fungalflux/storefront-backend/pkg/config"
)

// Totals is the order cost breakdown in integer cents. The invariant
// TotalCents == SubtotalCents + ShippingCents + TaxCents holds exactly.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Calculator applies the storefront's flat pricing rules. The same rule set
// backs both the displayed estimate and the persisted order, so the two can
// never disagree.
type Calculator struct {
	freeShippingThresholdCents int64
	flatShippingCents          int64
	taxRateBasisPoints         int64
}

// NewCalculator builds a calculator from the configured business rules.
func NewCalculator(cfg config.CheckoutConfig) Calculator {
	return Calculator{
		freeShippingThresholdCents: cfg.FreeShippingThresholdCents,
		flatShippingCents:          cfg.FlatShippingCents,
		taxRateBasisPoints:         cfg.TaxRateBasisPoints,
	}
}

// Compute derives shipping, tax and grand total from a subtotal in cents.
func (c Calculator) Compute(subtotalCents int64) Totals {
	if subtotalCents < 0 {
		subtotalCents = 0
	}

	shipping := c.flatShippingCents
	if subtotalCents >= c.freeShippingThresholdCents {
		shipping = 0
	}
	// An empty selection estimates to all zeros; nothing ships, so the flat
	// fee does not apply.
	if subtotalCents == 0 {
		shipping = 0
	}

	tax := c.taxCents(subtotalCents)

	return Totals{
		SubtotalCents: subtotalCents,
		ShippingCents: shipping,
		TaxCents:      tax,
		TotalCents:    subtotalCents + shipping + tax,
	}
}

// taxCents rounds half away from zero to whole cents, matching how the
// charge amount is presented to the shopper.
func (c Calculator) taxCents(subtotalCents int64) int64 {
	rate := decimal.New(c.taxRateBasisPoints, -4)
	return decimal.NewFromInt(subtotalCents).Mul(rate).Round(0).IntPart()
}
