package contribution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service wires the parser and calculator to their collaborators. It reads no
// configuration of its own; everything arrives through NewService.
type Service struct {
	store  StoreAPI
	events EventPublisher
	now    func() time.Time
}

func NewService(store StoreAPI, events EventPublisher) *Service {
	return &Service{store: store, events: events, now: time.Now}
}

// ImportCities parses rows and replaces every stored city policy.
func (s *Service) ImportCities(ctx context.Context, rows []Row) (int, error) {
	cities, err := ParseCities(rows)
	if err != nil {
		return 0, err
	}
	if err := s.store.ReplaceCities(ctx, cities); err != nil {
		return 0, fmt.Errorf("store cities: %w", err)
	}
	return len(cities), nil
}

// ImportSalaries parses rows and replaces every stored salary record.
func (s *Service) ImportSalaries(ctx context.Context, rows []Row) (int, error) {
	salaries, err := ParseSalaries(rows)
	if err != nil {
		return 0, err
	}
	if err := s.store.ReplaceSalaries(ctx, salaries); err != nil {
		return 0, fmt.Errorf("store salaries: %w", err)
	}
	return len(salaries), nil
}

// Import dispatches on kind.
func (s *Service) Import(ctx context.Context, kind Kind, rows []Row) (int, error) {
	switch kind {
	case KindCities:
		return s.ImportCities(ctx, rows)
	case KindSalaries:
		return s.ImportSalaries(ctx, rows)
	}
	return 0, &ParseError{Reason: fmt.Sprintf("unknown record kind %q", kind)}
}

// Run calculates contributions for every stored salary against one city
// policy and replaces the stored results.
func (s *Service) Run(ctx context.Context, opts RunOptions) (RunSummary, error) {
	opts.CityName = strings.TrimSpace(opts.CityName)
	if opts.CityName == "" {
		return RunSummary{}, &MissingFieldError{Fields: []string{FieldCityName}}
	}

	salaries, err := s.store.ListSalaries(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load salaries: %w", err)
	}
	if len(salaries) == 0 {
		return RunSummary{}, ErrNoSalaries
	}

	city, err := s.store.SelectCity(ctx, opts.CityName, opts.Year)
	if err != nil {
		return RunSummary{}, fmt.Errorf("select policy %s: %w", opts.CityName, err)
	}

	if opts.StrictYear {
		if err := CheckSingleYear(salaries); err != nil {
			return RunSummary{}, err
		}
	}

	report, err := CalculateReport(salaries, city)
	if err != nil {
		return RunSummary{}, err
	}
	calculatedAt := s.now().UTC()
	for i := range report.Results {
		report.Results[i].CalculatedAt = calculatedAt
	}

	if err := s.store.ReplaceResults(ctx, report.Results); err != nil {
		return RunSummary{}, fmt.Errorf("store results: %w", err)
	}

	summary := RunSummary{
		RunID:              uuid.NewString(),
		CityName:           city.CityName,
		PolicyYear:         city.Year,
		Employees:          len(report.Results),
		TotalCompanyAmount: TotalCompanyAmount(report.Results),
		MixedYearEmployees: report.MixedYearEmployees,
		Results:            report.Results,
		CalculatedAt:       calculatedAt,
	}
	for _, employeeID := range report.MixedYearEmployees {
		slog.Warn("salary months span several years; result year taken from first record",
			"runId", summary.RunID, "employeeId", employeeID)
	}

	if s.events != nil {
		event := CalculatedEvent{
			RunID:              summary.RunID,
			CityName:           summary.CityName,
			PolicyYear:         summary.PolicyYear,
			Employees:          summary.Employees,
			TotalCompanyAmount: summary.TotalCompanyAmount,
			CalculatedAt:       calculatedAt,
		}
		if err := s.events.PublishCalculated(ctx, event); err != nil {
			slog.Warn("calculation event publish failed", "runId", summary.RunID, "err", err)
		}
	}
	return summary, nil
}

func (s *Service) ListResults(ctx context.Context) ([]Result, error) {
	return s.store.ListResults(ctx)
}

func (s *Service) ListCities(ctx context.Context) ([]City, error) {
	return s.store.ListCities(ctx)
}
