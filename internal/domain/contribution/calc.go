package contribution

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Calculate produces one Result per distinct employee, in order of first
// appearance in salaries.
func Calculate(salaries []Salary, city City) ([]Result, error) {
	report, err := CalculateReport(salaries, city)
	if err != nil {
		return nil, err
	}
	return report.Results, nil
}

// CalculateReport is Calculate plus diagnostics about the input.
func CalculateReport(salaries []Salary, city City) (Report, error) {
	if len(salaries) == 0 {
		return Report{}, ErrEmptyInput
	}
	groups := groupByEmployee(salaries)
	report := Report{Results: make([]Result, 0, len(groups))}
	for _, group := range groups {
		report.Results = append(report.Results, employeeResult(group, city))
		if len(distinctYears(group)) > 1 {
			report.MixedYearEmployees = append(report.MixedYearEmployees, group[0].EmployeeID)
		}
	}
	return report, nil
}

func groupByEmployee(salaries []Salary) [][]Salary {
	index := make(map[string]int, len(salaries))
	var groups [][]Salary
	for _, s := range salaries {
		i, ok := index[s.EmployeeID]
		if !ok {
			i = len(groups)
			index[s.EmployeeID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], s)
	}
	return groups
}

func employeeResult(group []Salary, city City) Result {
	total := decimal.Zero
	for _, s := range group {
		total = total.Add(s.SalaryAmount)
	}
	avg := total.Div(decimal.NewFromInt(int64(len(group))))
	base := ContributionBase(avg, city)
	first := group[0]
	return Result{
		EmployeeID:       first.EmployeeID,
		EmployeeName:     first.EmployeeName,
		Year:             first.Month / 100,
		AvgSalary:        RoundAmount(avg),
		ContributionBase: base,
		CompanyAmount:    RoundAmount(base.Mul(city.Rate)),
		CityName:         city.CityName,
		Rate:             city.Rate,
		BaseMin:          city.BaseMin,
		BaseMax:          city.BaseMax,
	}
}

// ContributionBase clamps the unrounded average into [BaseMin, BaseMax] and
// rounds it to cents. A bound with sub-cent digits is rounded inward so the
// result stays inside the range; ParseCities rejects ranges holding no whole cent.
func ContributionBase(avg decimal.Decimal, city City) decimal.Decimal {
	clamped := decimal.Max(city.BaseMin, decimal.Min(avg, city.BaseMax))
	base := RoundAmount(clamped)
	switch {
	case base.GreaterThan(city.BaseMax):
		return city.BaseMax.RoundFloor(amountPlaces)
	case base.LessThan(city.BaseMin):
		return city.BaseMin.RoundCeil(amountPlaces)
	}
	return base
}

// RoundAmount rounds half away from zero to two decimal places.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(amountPlaces)
}

// CheckSingleYear fails when the salary months cover more than one year.
func CheckSingleYear(salaries []Salary) error {
	if len(salaries) == 0 {
		return ErrEmptyInput
	}
	if years := distinctYears(salaries); len(years) > 1 {
		return &MixedYearError{Years: years}
	}
	return nil
}

func distinctYears(salaries []Salary) []int {
	seen := map[int]struct{}{}
	var years []int
	for _, s := range salaries {
		year := s.Month / 100
		if _, ok := seen[year]; ok {
			continue
		}
		seen[year] = struct{}{}
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// TotalCompanyAmount sums the employer-owed amounts of results.
func TotalCompanyAmount(results []Result) decimal.Decimal {
	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.CompanyAmount)
	}
	return total
}
