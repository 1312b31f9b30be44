package contribution

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func foshan() City {
	return City{CityName: "佛山", Year: 2024, Rate: dec("0.14"), BaseMin: dec("3000"), BaseMax: dec("28000")}
}

func salary(id, name string, month int, amount string) Salary {
	return Salary{EmployeeID: id, EmployeeName: name, Month: month, SalaryAmount: dec(amount)}
}

func TestCalculateClampsToBaseMin(t *testing.T) {
	results, err := Calculate([]Salary{
		salary("E1", "张三", 202401, "2000"),
		salary("E1", "张三", 202402, "2200"),
	}, foshan())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.EmployeeID != "E1" || r.Year != 2024 || r.CityName != "佛山" {
		t.Fatalf("unexpected identity fields %+v", r)
	}
	if !r.AvgSalary.Equal(dec("2100.00")) {
		t.Fatalf("expected avg 2100.00, got %s", r.AvgSalary)
	}
	if !r.ContributionBase.Equal(dec("3000.00")) {
		t.Fatalf("expected base 3000.00, got %s", r.ContributionBase)
	}
	if !r.CompanyAmount.Equal(dec("420.00")) {
		t.Fatalf("expected company amount 420.00, got %s", r.CompanyAmount)
	}
	if !r.Rate.Equal(dec("0.14")) {
		t.Fatalf("expected rate passthrough, got %s", r.Rate)
	}
}

func TestCalculateClampsToBaseMax(t *testing.T) {
	results, err := Calculate([]Salary{salary("E2", "李四", 202403, "50000")}, foshan())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := results[0]
	if !r.AvgSalary.Equal(dec("50000")) {
		t.Fatalf("expected avg 50000.00, got %s", r.AvgSalary)
	}
	if !r.ContributionBase.Equal(dec("28000")) {
		t.Fatalf("expected base 28000.00, got %s", r.ContributionBase)
	}
	if !r.CompanyAmount.Equal(dec("3920")) {
		t.Fatalf("expected company amount 3920.00, got %s", r.CompanyAmount)
	}
}

func TestCalculateBoundaryAverageIsNotClamped(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{name: "equal to base_min", amount: "3000"},
		{name: "equal to base_max", amount: "28000"},
		{name: "inside range", amount: "8123.45"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			results, err := Calculate([]Salary{salary("E1", "A", 202401, tc.amount)}, foshan())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !results[0].ContributionBase.Equal(dec(tc.amount)) {
				t.Fatalf("expected base %s, got %s", tc.amount, results[0].ContributionBase)
			}
		})
	}
}

func TestCalculateRoundsHalfAwayFromZero(t *testing.T) {
	// avg = 10000.005 exactly; binary floats would round this down.
	city := City{CityName: "X", Year: 2024, Rate: dec("0.1"), BaseMin: dec("0"), BaseMax: dec("100000")}
	results, err := Calculate([]Salary{
		salary("E1", "A", 202401, "10000.00"),
		salary("E1", "A", 202402, "10000.01"),
	}, city)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := results[0]
	if !r.AvgSalary.Equal(dec("10000.01")) {
		t.Fatalf("expected avg rounded to 10000.01, got %s", r.AvgSalary)
	}
	if !r.ContributionBase.Equal(dec("10000.01")) {
		t.Fatalf("expected base 10000.01, got %s", r.ContributionBase)
	}
	if !r.CompanyAmount.Equal(dec("1000")) {
		t.Fatalf("expected company amount 1000.00, got %s", r.CompanyAmount)
	}
}

func TestContributionBaseStaysInsideSubCentBounds(t *testing.T) {
	city := City{CityName: "X", Year: 2024, Rate: dec("0.2"), BaseMin: dec("3000.005"), BaseMax: dec("5000.555")}
	if got := ContributionBase(dec("9000"), city); !got.Equal(dec("5000.55")) {
		t.Fatalf("expected base pulled down to 5000.55, got %s", got)
	}
	if got := ContributionBase(dec("10"), city); !got.Equal(dec("3000.01")) {
		t.Fatalf("expected base pulled up to 3000.01, got %s", got)
	}
}

func TestCalculateGroupsByFirstAppearance(t *testing.T) {
	salaries := []Salary{
		salary("E3", "C", 202401, "5000"),
		salary("E1", "A", 202401, "6000"),
		salary("E3", "C", 202402, "7000"),
		salary("E2", "B", 202401, "8000"),
		salary("E1", "A", 202402, "4000"),
	}
	results, err := Calculate(salaries, foshan())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, r := range results {
		ids = append(ids, r.EmployeeID)
	}
	if !reflect.DeepEqual(ids, []string{"E3", "E1", "E2"}) {
		t.Fatalf("expected first-appearance order, got %v", ids)
	}
	if !results[0].AvgSalary.Equal(dec("6000")) || !results[1].AvgSalary.Equal(dec("5000")) {
		t.Fatalf("unexpected averages %s, %s", results[0].AvgSalary, results[1].AvgSalary)
	}
}

func TestCalculateInvariants(t *testing.T) {
	city := City{CityName: "Y", Year: 2024, Rate: dec("0.105"), BaseMin: dec("4546.5"), BaseMax: dec("26421")}
	amounts := []string{"0", "1", "4546.49", "4546.5", "7777.777", "26421", "26421.01", "99999.99"}
	var salaries []Salary
	for i, a := range amounts {
		salaries = append(salaries, salary(string(rune('A'+i)), "n", 202401+i%12, a))
		salaries = append(salaries, salary(string(rune('A'+i)), "n", 202402, "3333.33"))
	}

	first, err := Calculate(salaries, city)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(amounts) {
		t.Fatalf("expected %d results, got %d", len(amounts), len(first))
	}
	seen := map[string]bool{}
	for _, r := range first {
		if seen[r.EmployeeID] {
			t.Fatalf("duplicate result for %s", r.EmployeeID)
		}
		seen[r.EmployeeID] = true
		if r.ContributionBase.LessThan(city.BaseMin) || r.ContributionBase.GreaterThan(city.BaseMax) {
			t.Fatalf("%s: base %s outside [%s, %s]", r.EmployeeID, r.ContributionBase, city.BaseMin, city.BaseMax)
		}
		if want := r.ContributionBase.Mul(city.Rate).Round(2); !r.CompanyAmount.Equal(want) {
			t.Fatalf("%s: company amount %s, want %s", r.EmployeeID, r.CompanyAmount, want)
		}
	}

	second, err := Calculate(salaries, city)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical results for identical input")
	}
}

func TestCalculateEmptyInput(t *testing.T) {
	if _, err := Calculate(nil, foshan()); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestCalculateReportFlagsMixedYears(t *testing.T) {
	report, err := CalculateReport([]Salary{
		salary("E1", "A", 202312, "5000"),
		salary("E1", "A", 202401, "5000"),
		salary("E2", "B", 202401, "5000"),
	}, foshan())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(report.MixedYearEmployees, []string{"E1"}) {
		t.Fatalf("expected E1 flagged, got %v", report.MixedYearEmployees)
	}
	if report.Results[0].Year != 2023 {
		t.Fatalf("expected year from first record (2023), got %d", report.Results[0].Year)
	}
}

func TestCheckSingleYear(t *testing.T) {
	err := CheckSingleYear([]Salary{salary("E1", "A", 202401, "1"), salary("E2", "B", 202501, "1")})
	var mixed *MixedYearError
	if !errors.As(err, &mixed) {
		t.Fatalf("expected MixedYearError, got %v", err)
	}
	if !reflect.DeepEqual(mixed.Years, []int{2024, 2025}) {
		t.Fatalf("unexpected years %v", mixed.Years)
	}
	if err := CheckSingleYear([]Salary{salary("E1", "A", 202401, "1"), salary("E1", "A", 202412, "1")}); err != nil {
		t.Fatalf("expected single year to pass, got %v", err)
	}
}
