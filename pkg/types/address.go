package types

import "strings"

// Address carries the contact and street fields collected during checkout.
// The same shape is used for shipping and billing; orders persist it as a
// JSON snapshot.
type Address struct {
	FullName   string `json:"full_name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,e164"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,postal_code"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// IsZero reports whether no field has been filled in yet.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.FullName) == "" &&
		strings.TrimSpace(a.Email) == "" &&
		strings.TrimSpace(a.Phone) == "" &&
		strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.PostalCode) == ""
}

// Equal compares all fields, used to verify billing stays in sync with
// shipping while the same-as-shipping flag is set.
func (a Address) Equal(other Address) bool {
	return a == other
}
