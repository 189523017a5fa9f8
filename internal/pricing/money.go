package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
)

// FormatCents renders integer cents as a display decimal with two places.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParsePrice converts a decimal price string (as entered in the admin form)
// to integer cents. This is the single place raw price input crosses into
// the money domain.
func ParsePrice(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}

	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a valid number")
	}
	if parsed.LessThanOrEqual(decimal.Zero) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than 0")
	}
	if parsed.Exponent() < -2 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price can have at most 2 decimal places")
	}

	return parsed.Shift(2).IntPart(), nil
}
