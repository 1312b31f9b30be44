package contribution

import "context"

// PolicyStore supplies city policies. SelectCity returns ErrPolicyNotFound
// when no row matches; a zero year selects the latest year for the city.
type PolicyStore interface {
	ReplaceCities(ctx context.Context, cities []City) error
	ListCities(ctx context.Context) ([]City, error)
	SelectCity(ctx context.Context, name string, year int) (City, error)
}

// SalaryStore returns salaries in upload order.
type SalaryStore interface {
	ReplaceSalaries(ctx context.Context, salaries []Salary) error
	ListSalaries(ctx context.Context) ([]Salary, error)
}

// ResultSink replaces all prior results with one run's output and enforces
// uniqueness of (employee_id, year).
type ResultSink interface {
	ReplaceResults(ctx context.Context, results []Result) error
	ListResults(ctx context.Context) ([]Result, error)
}

type StoreAPI interface {
	PolicyStore
	SalaryStore
	ResultSink
}

// EventPublisher announces completed calculation runs.
type EventPublisher interface {
	PublishCalculated(ctx context.Context, event CalculatedEvent) error
}
