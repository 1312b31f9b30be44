package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCollectorRequests(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(429, 20*time.Millisecond)
	c.Record(503, 30*time.Millisecond)

	snap := c.Snapshot()
	if snap.RequestsTotal != 3 || snap.ErrorsTotal != 1 || snap.RateLimitedTotal != 1 {
		t.Fatalf("unexpected counters %+v", snap)
	}
	if snap.TotalDurationMs != 60 || snap.AvgDurationMs != 20 {
		t.Fatalf("unexpected durations %+v", snap)
	}
}

func TestCollectorDomainCounters(t *testing.T) {
	c := New()
	c.RecordImport("cities", 4)
	c.RecordImport("salaries", 12)
	c.RecordImport("unknown", 3)
	c.RecordCalculation(2, nil)
	c.RecordCalculation(0, errors.New("policy not found"))

	snap := c.Snapshot()
	if snap.CitiesImported != 4 || snap.SalariesImported != 12 {
		t.Fatalf("unexpected import counters %+v", snap)
	}
	if snap.CalculationRuns != 2 || snap.CalculationFails != 1 || snap.ResultsProduced != 2 {
		t.Fatalf("unexpected calculation counters %+v", snap)
	}
}

func TestCollectorConcurrentRecord(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(200, time.Millisecond)
		}()
	}
	wg.Wait()
	if got := c.Snapshot().RequestsTotal; got != 50 {
		t.Fatalf("expected 50 requests, got %d", got)
	}
}
