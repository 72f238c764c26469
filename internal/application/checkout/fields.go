package checkout

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field describes one input of the order form.
type Field struct {
	Name     string
	Label    string
	Required bool
	// Rule is a validator tag applied to non-empty values
	Rule string
}

// DefaultFields returns the order form in declared order.
func DefaultFields() []Field {
	return []Field{
		{Name: "full_name", Label: "Full Name", Required: true},
		{Name: "email", Label: "Email Address", Required: true, Rule: "email"},
		{Name: "phone_number", Label: "Phone Number", Required: true, Rule: "phone"},
		{Name: "street_address1", Label: "Street Address 1", Required: true},
		{Name: "street_address2", Label: "Street Address 2"},
		{Name: "town_or_city", Label: "Town or City", Required: true},
		{Name: "postcode", Label: "Postal Code", Required: true, Rule: "postcode"},
		{Name: "country", Label: "Country", Required: true},
		{Name: "county", Label: "County, State or Locality"},
	}
}

var ruleMessages = map[string]string{
	"email":    "Please enter a valid email address",
	"phone":    "Please enter a valid phone number",
	"postcode": "Please enter a valid postal code",
}

func requiredMessage(f Field) string {
	return f.Label + " is required"
}

func ruleMessage(rule string) string {
	if msg, ok := ruleMessages[rule]; ok {
		return msg
	}
	return "Please enter a valid value"
}

var (
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	postcodePattern = regexp.MustCompile(`(?i)^[A-Z0-9\s\-]{3,10}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(stripSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("postcode", func(fl validator.FieldLevel) bool {
		return postcodePattern.MatchString(fl.Field().String())
	})
	return v
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
