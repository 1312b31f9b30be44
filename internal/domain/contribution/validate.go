package contribution

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

var decimalType = reflect.TypeOf(decimal.Decimal{})

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	rules := map[string]validator.Func{
		"yyyymm":       validYearMonth,
		"dec_gt":       decimalParamRule(func(c int) bool { return c > 0 }),
		"dec_gte":      decimalParamRule(func(c int) bool { return c >= 0 }),
		"dec_lt":       decimalParamRule(func(c int) bool { return c < 0 }),
		"dec_gtefield": decimalFieldRule(func(c int) bool { return c >= 0 }),
		"whole_cent":   hasWholeCentAbove,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

func validYearMonth(fl validator.FieldLevel) bool {
	value := fl.Field().Int()
	year, month := value/100, value%100
	return year >= 1000 && year <= 9999 && month >= 1 && month <= 12
}

func fieldDecimal(field reflect.Value) (decimal.Decimal, bool) {
	if field.Type() != decimalType {
		return decimal.Decimal{}, false
	}
	return field.Interface().(decimal.Decimal), true
}

// decimalParamRule compares the field exactly against the tag parameter.
func decimalParamRule(accept func(cmp int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, ok := fieldDecimal(fl.Field())
		if !ok {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			panic(fmt.Sprintf("bad decimal parameter %q", fl.Param()))
		}
		return accept(value.Cmp(bound))
	}
}

// decimalFieldRule compares the field exactly against the sibling field
// named by the tag parameter.
func decimalFieldRule(accept func(cmp int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, ok := fieldDecimal(fl.Field())
		if !ok {
			return false
		}
		other, ok := fieldDecimal(fl.Parent().FieldByName(fl.Param()))
		if !ok {
			return false
		}
		return accept(value.Cmp(other))
	}
}

// hasWholeCentAbove requires at least one whole cent between the sibling
// named by the parameter and this field, so a rounded base can stay in range.
func hasWholeCentAbove(fl validator.FieldLevel) bool {
	upper, ok := fieldDecimal(fl.Field())
	if !ok {
		return false
	}
	lower, ok := fieldDecimal(fl.Parent().FieldByName(fl.Param()))
	if !ok {
		return false
	}
	return lower.RoundCeil(amountPlaces).LessThanOrEqual(upper)
}

// checkRecord runs the struct-tag domain checks on a parsed City or Salary.
func checkRecord(row int, record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ParseError{Row: row, Reason: err.Error()}
	}
	fe := fieldErrs[0]
	return &ParseError{Row: row, Field: fe.Field(), Value: fe.Value(), Reason: describeTag(fe)}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be blank"
	case "dec_gt":
		return "must be greater than " + fe.Param()
	case "gte", "dec_gte":
		return "must be at least " + fe.Param()
	case "dec_lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "dec_gtefield":
		return "must not be less than " + FieldBaseMin
	case "whole_cent":
		return "must leave at least one whole cent at or above " + FieldBaseMin
	case "yyyymm":
		return "must be a month encoded as YYYYMM"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
