package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps process-local counters for requests and contribution work.
// A nil Collector ignores every call.
type Collector struct {
	totalRequests   atomic.Uint64
	errorRequests   atomic.Uint64
	rateLimited     atomic.Uint64
	totalDurationMs atomic.Uint64

	citiesImported   atomic.Uint64
	salariesImported atomic.Uint64
	calculationRuns  atomic.Uint64
	calculationFails atomic.Uint64
	resultsProduced  atomic.Uint64
}

type Snapshot struct {
	RequestsTotal    uint64  `json:"requestsTotal"`
	ErrorsTotal      uint64  `json:"errorsTotal"`
	RateLimitedTotal uint64  `json:"rateLimitedTotal"`
	AvgDurationMs    float64 `json:"avgDurationMs"`
	TotalDurationMs  uint64  `json:"totalDurationMs"`
	CitiesImported   uint64  `json:"citiesImported"`
	SalariesImported uint64  `json:"salariesImported"`
	CalculationRuns  uint64  `json:"calculationRuns"`
	CalculationFails uint64  `json:"calculationFailures"`
	ResultsProduced  uint64  `json:"resultsProduced"`
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.totalRequests.Add(1)
	if status >= 500 {
		c.errorRequests.Add(1)
	}
	if status == 429 {
		c.rateLimited.Add(1)
	}
	c.totalDurationMs.Add(uint64(max(duration.Milliseconds(), 0)))
}

// RecordImport counts rows accepted for kind ("cities" or "salaries").
func (c *Collector) RecordImport(kind string, rows int) {
	if c == nil || rows <= 0 {
		return
	}
	switch kind {
	case "cities":
		c.citiesImported.Add(uint64(rows))
	case "salaries":
		c.salariesImported.Add(uint64(rows))
	}
}

func (c *Collector) RecordCalculation(results int, err error) {
	if c == nil {
		return
	}
	c.calculationRuns.Add(1)
	if err != nil {
		c.calculationFails.Add(1)
		return
	}
	c.resultsProduced.Add(uint64(max(results, 0)))
}

func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return Snapshot{
		RequestsTotal:    total,
		ErrorsTotal:      c.errorRequests.Load(),
		RateLimitedTotal: c.rateLimited.Load(),
		AvgDurationMs:    avg,
		TotalDurationMs:  totalMs,
		CitiesImported:   c.citiesImported.Load(),
		SalariesImported: c.salariesImported.Load(),
		CalculationRuns:  c.calculationRuns.Load(),
		CalculationFails: c.calculationFails.Load(),
		ResultsProduced:  c.resultsProduced.Load(),
	}
}
