package contribution

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput is returned when there are no rows or records to process.
	ErrEmptyInput = errors.New("empty input")

	ErrPolicyNotFound = errors.New("city policy not found")
	ErrNoSalaries     = errors.New("no salary records uploaded")
)

// MissingFieldError reports every required column absent on a row.
type MissingFieldError struct {
	Row    int
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("row %d: missing required fields: %s", e.Row, strings.Join(e.Fields, ", "))
}

// ParseError reports a present field that could not be coerced or is out of
// its allowed range.
type ParseError struct {
	Row    int
	Field  string
	Value  any
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d: field %s (%v): %s", e.Row, e.Field, e.Value, e.Reason)
}

// MixedYearError is returned by CheckSingleYear when salary months span
// more than one calendar year.
type MixedYearError struct {
	Years []int
}

func (e *MixedYearError) Error() string {
	years := make([]string, len(e.Years))
	for i, y := range e.Years {
		years[i] = fmt.Sprint(y)
	}
	return "salary records span multiple years: " + strings.Join(years, ", ")
}
