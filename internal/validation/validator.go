package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

// New returns a configured validator with the custom rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("phone", validatePhone)

	// when the client sends the total it displayed, it must match the sum of
	// (price * quantity) of the items it sent
	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})

	return v
}

// validatePhone accepts 9 to 15 digits with an optional leading +. Spaces
// and dashes are ignored.
func validatePhone(fl validatorv10.FieldLevel) bool {
	s := strings.NewReplacer(" ", "", "-", "").Replace(fl.Field().String())
	return phonePattern.MatchString(s)
}

func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)
	if req.ExpectedTotal == 0 || len(req.Items) == 0 {
		return
	}

	sum := decimal.Zero
	for _, it := range req.Items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if !sum.Round(2).Equal(decimal.NewFromFloat(req.ExpectedTotal).Round(2)) {
		sl.ReportError(req.ExpectedTotal, "expectedTotal", "ExpectedTotal", "total_match_items",
			fmt.Sprintf("items sum %s != expected total %.2f", sum.StringFixed(2), req.ExpectedTotal))
	}
}
