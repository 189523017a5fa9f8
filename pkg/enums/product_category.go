package enums

import "fmt"

// ProductCategory describes the allowed values for the products.category column.
type ProductCategory string

const (
	ProductCategoryGrowKits       ProductCategory = "grow-kits"
	ProductCategoryLiquidCultures ProductCategory = "liquid-cultures"
	ProductCategorySupplies       ProductCategory = "supplies"
)

var validProductCategories = []ProductCategory{
	ProductCategoryGrowKits,
	ProductCategoryLiquidCultures,
	ProductCategorySupplies,
}

// IsValid reports whether the value matches the canonical category enum.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductCategory converts the raw string to a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
