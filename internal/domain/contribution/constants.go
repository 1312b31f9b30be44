package contribution

// Kind selects which record type a spreadsheet upload holds.
type Kind string

const (
	KindCities   Kind = "cities"
	KindSalaries Kind = "salaries"
)

const (
	FieldCityName = "city_name"
	FieldYear     = "year"
	FieldRate     = "rate"
	FieldBaseMin  = "base_min"
	FieldBaseMax  = "base_max"

	FieldEmployeeID   = "employee_id"
	FieldEmployeeName = "employee_name"
	FieldMonth        = "month"
	FieldSalaryAmount = "salary_amount"
)

// amountPlaces is the scale of every derived currency amount.
const amountPlaces int32 = 2

// columnAliases maps known misspelled headers to their canonical column.
// Keys are matched before trimming.
var columnAliases = map[Kind]map[string]string{
	KindCities: {
		"city_namte ": FieldCityName,
		"city_namte":  FieldCityName,
	},
	KindSalaries: {},
}

var requiredFields = map[Kind][]string{
	KindCities:   {FieldCityName, FieldYear, FieldRate, FieldBaseMin, FieldBaseMax},
	KindSalaries: {FieldEmployeeID, FieldEmployeeName, FieldMonth, FieldSalaryAmount},
}

// RequiredFields returns the mandatory columns for kind in declaration order.
func RequiredFields(kind Kind) []string {
	fields := requiredFields[kind]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

func (k Kind) Valid() bool {
	_, ok := requiredFields[k]
	return ok
}
