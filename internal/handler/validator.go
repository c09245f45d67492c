package handler

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NewValidator returns a validator that understands decimal.Decimal fields
// through the decimal_gt and decimal_gte tags.
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	must(v.RegisterValidation("decimal_gt", compareDecimal(func(value, limit decimal.Decimal) bool {
		return value.GreaterThan(limit)
	})))
	must(v.RegisterValidation("decimal_gte", compareDecimal(func(value, limit decimal.Decimal) bool {
		return value.GreaterThanOrEqual(limit)
	})))

	return v
}

func compareDecimal(cmp func(value, limit decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		limit, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return cmp(value, limit)
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// validationMessage renders the first failed field of err.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("Field '%s' failed '%s=%s' validation", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("Field '%s' failed '%s' validation", fe.Field(), fe.Tag())
}
