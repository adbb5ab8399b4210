package invoice

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// messages are keyed by JSON field name and validation tag.
var messages = map[string]string{
	"client_name.required": "Client name is required",
	"items.required":       "At least one item is required",
	"items.min":            "At least one item is required",
}

// tagMessages apply to any field failing the tag.
var tagMessages = map[string]string{
	"finite": "Amounts must be finite numbers",
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		})
	})
	return validate
}

// Validate checks that the invoice can be submitted: a non-empty client name,
// at least one line item and no NaN or infinite amounts. The first failure is
// returned as a *ValidationError.
func (inv *Invoice) Validate() error {
	err := validatorInstance().Struct(inv)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	msg, ok := messages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg, ok = tagMessages[fe.Tag()]
	}
	if !ok {
		msg = fe.Error()
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}
