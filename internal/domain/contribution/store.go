package contribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	cryptoutil "contribcalc/internal/platform/crypto"
)

// Store is the Postgres-backed StoreAPI. Numeric columns travel as text so
// decimals keep their exact scale.
type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

func (s *Store) ReplaceCities(ctx context.Context, cities []City) error {
	return s.replace(ctx, "cities", func(batch *pgx.Batch) error {
		for _, c := range cities {
			batch.Queue(`
        INSERT INTO cities (city_name, year, rate, base_min, base_max)
        VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5::text::numeric)
      `, c.CityName, c.Year, c.Rate.String(), c.BaseMin.String(), c.BaseMax.String())
		}
		return nil
	})
}

func (s *Store) ListCities(ctx context.Context) ([]City, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT city_name, year, rate::text, base_min::text, base_max::text
    FROM cities
    ORDER BY city_name, year DESC, id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []City
	for rows.Next() {
		city, err := scanCity(rows)
		if err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

func (s *Store) SelectCity(ctx context.Context, name string, year int) (City, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT city_name, year, rate::text, base_min::text, base_max::text
    FROM cities
    WHERE city_name = $1 AND ($2 = 0 OR year = $2)
    ORDER BY year DESC, id
    LIMIT 1
  `, name, year)
	city, err := scanCity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return City{}, ErrPolicyNotFound
	}
	return city, err
}

func (s *Store) ReplaceSalaries(ctx context.Context, salaries []Salary) error {
	return s.replace(ctx, "salaries", func(batch *pgx.Batch) error {
		for _, sal := range salaries {
			var plain *string
			var enc []byte
			if s.Crypto != nil && s.Crypto.Configured() {
				sealed, err := s.Crypto.EncryptAmount(sal.SalaryAmount)
				if err != nil {
					return fmt.Errorf("encrypt salary for %s: %w", sal.EmployeeID, err)
				}
				enc = sealed
			} else {
				amount := sal.SalaryAmount.String()
				plain = &amount
			}
			batch.Queue(`
        INSERT INTO salaries (employee_id, employee_name, month, salary_amount, salary_amount_enc)
        VALUES ($1, $2, $3, $4::text::numeric, $5)
      `, sal.EmployeeID, sal.EmployeeName, sal.Month, plain, enc)
		}
		return nil
	})
}

func (s *Store) ListSalaries(ctx context.Context) ([]Salary, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, employee_name, month, salary_amount::text, salary_amount_enc
    FROM salaries
    ORDER BY id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var salaries []Salary
	for rows.Next() {
		var sal Salary
		var plain *string
		var enc []byte
		if err := rows.Scan(&sal.EmployeeID, &sal.EmployeeName, &sal.Month, &plain, &enc); err != nil {
			return nil, err
		}
		switch {
		case len(enc) > 0:
			if s.Crypto == nil || !s.Crypto.Configured() {
				return nil, fmt.Errorf("salary for %s is encrypted but no key is configured", sal.EmployeeID)
			}
			sal.SalaryAmount, err = s.Crypto.DecryptAmount(enc)
		case plain != nil:
			sal.SalaryAmount, err = decimal.NewFromString(*plain)
		}
		if err != nil {
			return nil, fmt.Errorf("decode salary for %s: %w", sal.EmployeeID, err)
		}
		salaries = append(salaries, sal)
	}
	return salaries, rows.Err()
}

func (s *Store) ReplaceResults(ctx context.Context, results []Result) error {
	return s.replace(ctx, "results", func(batch *pgx.Batch) error {
		for _, r := range results {
			calculatedAt := r.CalculatedAt
			if calculatedAt.IsZero() {
				calculatedAt = time.Now().UTC()
			}
			batch.Queue(`
        INSERT INTO results (employee_id, employee_name, year, avg_salary, contribution_base,
                             company_amount, city_name, rate, base_min, base_max, calculated_at)
        VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric,
                $7, $8::text::numeric, $9::text::numeric, $10::text::numeric, $11)
      `, r.EmployeeID, r.EmployeeName, r.Year, r.AvgSalary.StringFixed(amountPlaces),
				r.ContributionBase.StringFixed(amountPlaces), r.CompanyAmount.StringFixed(amountPlaces),
				r.CityName, r.Rate.String(), r.BaseMin.String(), r.BaseMax.String(), calculatedAt)
		}
		return nil
	})
}

func (s *Store) ListResults(ctx context.Context) ([]Result, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, employee_name, year, avg_salary::text, contribution_base::text,
           company_amount::text, city_name, rate::text, base_min::text, base_max::text, calculated_at
    FROM results
    ORDER BY employee_id, year
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var avg, base, amount, rate, baseMin, baseMax string
		if err := rows.Scan(&r.EmployeeID, &r.EmployeeName, &r.Year, &avg, &base, &amount,
			&r.CityName, &rate, &baseMin, &baseMax, &r.CalculatedAt); err != nil {
			return nil, err
		}
		decoded, err := parseDecimals(avg, base, amount, rate, baseMin, baseMax)
		if err != nil {
			return nil, fmt.Errorf("decode result for %s: %w", r.EmployeeID, err)
		}
		r.AvgSalary, r.ContributionBase, r.CompanyAmount = decoded[0], decoded[1], decoded[2]
		r.Rate, r.BaseMin, r.BaseMax = decoded[3], decoded[4], decoded[5]
		results = append(results, r)
	}
	return results, rows.Err()
}

// replace deletes every row of table and queues the new rows in one
// transaction, so readers never observe a half-replaced table.
func (s *Store) replace(ctx context.Context, table string, queue func(*pgx.Batch) error) error {
	batch := &pgx.Batch{}
	if err := queue(batch); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return tx.Commit(ctx)
}

func scanCity(row pgx.Row) (City, error) {
	var city City
	var rate, baseMin, baseMax string
	if err := row.Scan(&city.CityName, &city.Year, &rate, &baseMin, &baseMax); err != nil {
		return City{}, err
	}
	decoded, err := parseDecimals(rate, baseMin, baseMax)
	if err != nil {
		return City{}, fmt.Errorf("decode city %s: %w", city.CityName, err)
	}
	city.Rate, city.BaseMin, city.BaseMax = decoded[0], decoded[1], decoded[2]
	return city, nil
}

func parseDecimals(values ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
