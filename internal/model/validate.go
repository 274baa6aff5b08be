package model

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
)

// DateLayout is how dates are stored and uploaded.
const DateLayout = "2006-01-02"

// Amounts are stored as NUMERIC(12,2).
const (
	amountDigits = 12
	amountPlaces = 2
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Years may not be in the future.
		_ = validate.RegisterValidation("notfutureyear", func(fl validator.FieldLevel) bool {
			return fl.Field().Int() <= int64(time.Now().Year())
		})
	})
	return validate
}

// check runs the struct tags and reports the first failure as a ValidationError.
func check(entity string, v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return appErrors.NewValidation(entity, fe.Field(), describe(fe))
	}
	return appErrors.NewValidation(entity, "", err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		if fe.Kind() == reflect.Int {
			return "must be at most " + fe.Param()
		}
		return "must be at most " + fe.Param() + " characters"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "notfutureyear":
		return "must not be in the future"
	}
	return "failed " + fe.Tag() + " check"
}

// checkAmount rejects negative amounts and amounts the schema cannot hold.
func checkAmount(entity, field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return appErrors.NewValidation(entity, field, "must be at least 0")
	}
	if len(d.Truncate(0).String()) > amountDigits-amountPlaces {
		return appErrors.NewValidation(entity, field, "must have at most 10 digits before the decimal point")
	}
	if !d.Equal(d.Round(amountPlaces)) {
		return appErrors.NewValidation(entity, field, "must have at most 2 decimal places")
	}
	return nil
}
