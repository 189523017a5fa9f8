package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/types"
)

// Accepts US ZIP/ZIP+4 and common international formats (alphanumeric with
// optional spaces or hyphens, 3 to 10 characters).
var postalCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\- ]{2,9}$`)

var addressValidator = newAddressValidator()

func newAddressValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("postal_code", func(fl validator.FieldLevel) bool {
		return postalCodePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateAddress runs the field-level rules that gate forward transitions
// out of the shipping and billing steps. Failures carry a per-field message
// map so the form can render inline errors.
func ValidateAddress(addr types.Address) error {
	err := addressValidator.Struct(addr)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "address validation")
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = messageFor(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "address validation failed").WithDetails(fields)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be a valid phone number in international format"
	case "postal_code":
		return "must be a valid postal code"
	case "iso3166_1_alpha2":
		return "must be a two-letter country code"
	default:
		return "invalid value"
	}
}
