package contribution

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var thousandsPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// ParseRecords validates raw rows into typed records of the given kind.
// A single invalid row fails the whole batch.
func ParseRecords(kind Kind, rows []Row) (Records, error) {
	switch kind {
	case KindCities:
		cities, err := ParseCities(rows)
		if err != nil {
			return Records{}, err
		}
		return Records{Kind: kind, Cities: cities}, nil
	case KindSalaries:
		salaries, err := ParseSalaries(rows)
		if err != nil {
			return Records{}, err
		}
		return Records{Kind: kind, Salaries: salaries}, nil
	}
	return Records{}, &ParseError{Reason: fmt.Sprintf("unknown record kind %q", kind)}
}

func ParseCities(rows []Row) ([]City, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no %s rows", ErrEmptyInput, KindCities)
	}
	cities := make([]City, 0, len(rows))
	for i, raw := range rows {
		city, err := parseCity(i+1, normalizeRow(KindCities, raw))
		if err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, nil
}

func ParseSalaries(rows []Row) ([]Salary, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no %s rows", ErrEmptyInput, KindSalaries)
	}
	salaries := make([]Salary, 0, len(rows))
	for i, raw := range rows {
		salary, err := parseSalary(i+1, normalizeRow(KindSalaries, raw))
		if err != nil {
			return nil, err
		}
		salaries = append(salaries, salary)
	}
	return salaries, nil
}

func parseCity(n int, row Row) (City, error) {
	if err := checkRequired(n, KindCities, row); err != nil {
		return City{}, err
	}
	f := fieldReader{row: n, values: row}
	city := City{
		CityName: f.text(FieldCityName),
		Year:     f.integer(FieldYear),
		Rate:     f.decimal(FieldRate),
		BaseMin:  f.decimal(FieldBaseMin),
		BaseMax:  f.decimal(FieldBaseMax),
	}
	if f.err != nil {
		return City{}, f.err
	}
	if err := checkRecord(n, city); err != nil {
		return City{}, err
	}
	return city, nil
}

func parseSalary(n int, row Row) (Salary, error) {
	if err := checkRequired(n, KindSalaries, row); err != nil {
		return Salary{}, err
	}
	f := fieldReader{row: n, values: row}
	salary := Salary{
		EmployeeID:   f.text(FieldEmployeeID),
		EmployeeName: f.text(FieldEmployeeName),
		Month:        f.integer(FieldMonth),
		SalaryAmount: f.decimal(FieldSalaryAmount),
	}
	if f.err != nil {
		return Salary{}, f.err
	}
	if err := checkRecord(n, salary); err != nil {
		return Salary{}, err
	}
	return salary, nil
}

// normalizeRow applies the kind's alias table to each raw key, then trims it.
// When two raw keys land on the same column, a non-blank value wins; ties go
// to the lexically later raw key so the outcome does not depend on map order.
func normalizeRow(kind Kind, raw Row) Row {
	aliases := columnAliases[kind]
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(Row, len(raw))
	for _, key := range keys {
		mapped := key
		if alias, ok := aliases[key]; ok {
			mapped = alias
		}
		mapped = strings.TrimSpace(mapped)
		value := raw[key]
		if existing, ok := out[mapped]; ok && !isBlank(existing) && isBlank(value) {
			continue
		}
		out[mapped] = value
	}
	return out
}

func checkRequired(n int, kind Kind, row Row) error {
	var missing []string
	for _, field := range requiredFields[kind] {
		if isBlank(row[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldError{Row: n, Fields: missing}
	}
	return nil
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case *string:
		return v == nil || strings.TrimSpace(*v) == ""
	}
	return false
}

// fieldReader coerces row values and keeps the first coercion failure.
type fieldReader struct {
	row    int
	values Row
	err    error
}

func (f *fieldReader) fail(field string, value any, reason string) {
	if f.err == nil {
		f.err = &ParseError{Row: f.row, Field: field, Value: value, Reason: reason}
	}
}

func (f *fieldReader) text(field string) string {
	switch v := f.values[field].(type) {
	case string:
		return strings.TrimSpace(v)
	case *string:
		return strings.TrimSpace(*v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (f *fieldReader) integer(field string) int {
	value := f.values[field]
	if d, ok, err := numericValue(value); ok {
		if err != nil || !d.IsInteger() {
			f.fail(field, value, "must be a whole number")
			return 0
		}
		return int(d.IntPart())
	}
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		d, err := decimal.NewFromString(s)
		if err != nil || !d.IsInteger() {
			f.fail(field, value, "must be a whole number")
			return 0
		}
		return int(d.IntPart())
	}
	f.fail(field, value, fmt.Sprintf("unsupported value type %T", value))
	return 0
}

func (f *fieldReader) decimal(field string) decimal.Decimal {
	value := f.values[field]
	if d, ok, err := numericValue(value); ok {
		if err != nil {
			f.fail(field, value, "must be a finite number")
			return decimal.Zero
		}
		return d
	}
	if s, ok := value.(string); ok {
		d, err := parseDecimalText(s)
		if err != nil {
			f.fail(field, value, "must be a number")
			return decimal.Zero
		}
		return d
	}
	f.fail(field, value, fmt.Sprintf("unsupported value type %T", value))
	return decimal.Zero
}

var errNotFinite = errors.New("not a finite number")

// numericValue converts any Go numeric cell value to a decimal. ok is false
// when value is not numeric at all.
func numericValue(value any) (d decimal.Decimal, ok bool, err error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true, nil
	case int:
		return decimal.NewFromInt(int64(v)), true, nil
	case int8:
		return decimal.NewFromInt(int64(v)), true, nil
	case int16:
		return decimal.NewFromInt(int64(v)), true, nil
	case int32:
		return decimal.NewFromInt(int64(v)), true, nil
	case int64:
		return decimal.NewFromInt(v), true, nil
	case uint:
		return fromUint(uint64(v)), true, nil
	case uint8:
		return fromUint(uint64(v)), true, nil
	case uint16:
		return fromUint(uint64(v)), true, nil
	case uint32:
		return fromUint(uint64(v)), true, nil
	case uint64:
		return fromUint(v), true, nil
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return decimal.Zero, true, errNotFinite
		}
		return decimal.NewFromFloat32(v), true, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, true, errNotFinite
		}
		return decimal.NewFromFloat(v), true, nil
	}
	return decimal.Zero, false, nil
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// parseDecimalText accepts plain decimals, comma-grouped thousands
// ("28,000.50") and percentages ("14%").
func parseDecimalText(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	percent := strings.HasSuffix(s, "%")
	if percent {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	if thousandsPattern.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if percent {
		d = d.Shift(-2)
	}
	return d, nil
}
