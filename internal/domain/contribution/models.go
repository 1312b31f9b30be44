package contribution

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decimals are money and rates; API consumers read them as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Row is one raw spreadsheet row keyed by column header. Values are strings,
// numbers or nil for empty cells.
type Row = map[string]any

// City is one city's annual contribution policy.
type City struct {
	CityName string          `json:"city_name" validate:"required"`
	Year     int             `json:"year" validate:"gte=1000,lte=9999"`
	Rate     decimal.Decimal `json:"rate" validate:"dec_gt=0,dec_lt=1"`
	BaseMin  decimal.Decimal `json:"base_min" validate:"dec_gte=0"`
	BaseMax  decimal.Decimal `json:"base_max" validate:"dec_gtefield=BaseMin,whole_cent=BaseMin"`
}

// Salary is one employee's pay for one month. Month is encoded as YYYYMM.
type Salary struct {
	EmployeeID   string          `json:"employee_id" validate:"required"`
	EmployeeName string          `json:"employee_name" validate:"required"`
	Month        int             `json:"month" validate:"yyyymm"`
	SalaryAmount decimal.Decimal `json:"salary_amount" validate:"dec_gte=0"`
}

// Result is the employer-owed contribution for one employee and year.
type Result struct {
	EmployeeID       string          `json:"employee_id"`
	EmployeeName     string          `json:"employee_name"`
	Year             int             `json:"year"`
	AvgSalary        decimal.Decimal `json:"avg_salary"`
	ContributionBase decimal.Decimal `json:"contribution_base"`
	CompanyAmount    decimal.Decimal `json:"company_amount"`
	CityName         string          `json:"city_name"`
	Rate             decimal.Decimal `json:"rate"`
	BaseMin          decimal.Decimal `json:"base_min"`
	BaseMax          decimal.Decimal `json:"base_max"`
	CalculatedAt     time.Time       `json:"calculated_at"`
}

// Records holds the output of ParseRecords. Exactly one slice is populated,
// matching Kind.
type Records struct {
	Kind     Kind
	Cities   []City
	Salaries []Salary
}

func (r Records) Len() int {
	if r.Kind == KindCities {
		return len(r.Cities)
	}
	return len(r.Salaries)
}

// Report is the calculator output plus diagnostics that do not change the
// results themselves.
type Report struct {
	Results []Result
	// MixedYearEmployees lists employees whose salary months span more than
	// one calendar year. Their Result.Year comes from the first record only.
	MixedYearEmployees []string
}

type RunOptions struct {
	CityName string `json:"cityName"`
	// Year narrows the policy lookup. Zero selects the latest year on file.
	Year       int  `json:"year"`
	StrictYear bool `json:"strictYear"`
}

type RunSummary struct {
	RunID              string          `json:"runId"`
	CityName           string          `json:"cityName"`
	PolicyYear         int             `json:"policyYear"`
	Employees          int             `json:"employees"`
	TotalCompanyAmount decimal.Decimal `json:"totalCompanyAmount"`
	MixedYearEmployees []string        `json:"mixedYearEmployees,omitempty"`
	Results            []Result        `json:"results"`
	CalculatedAt       time.Time       `json:"calculatedAt"`
}

// CalculatedEvent is published after a run's results have been stored.
type CalculatedEvent struct {
	RunID              string          `json:"runId"`
	CityName           string          `json:"cityName"`
	PolicyYear         int             `json:"policyYear"`
	Employees          int             `json:"employees"`
	TotalCompanyAmount decimal.Decimal `json:"totalCompanyAmount"`
	CalculatedAt       time.Time       `json:"calculatedAt"`
}
