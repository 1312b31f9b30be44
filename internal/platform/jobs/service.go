package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	JobCalculation    = "contribution_calculation"
	JobCitiesImport   = "cities_import"
	JobSalariesImport = "salaries_import"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrQueueFull = errors.New("job queue full")

// Func does the work of one job. Its first return value is stored as the
// run's JSON details.
type Func func(context.Context) (any, error)

// Run is one row of job_runs.
type Run struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Service runs jobs inline or on a single background worker and records each
// run in job_runs. With a nil DB nothing is recorded.
type Service struct {
	DB    *pgxpool.Pool
	queue chan job
}

type job struct {
	ID   string
	Type string
	Run  Func
}

func New(db *pgxpool.Pool, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Service{DB: db, queue: make(chan job, queueSize)}
}

// Start launches the worker. It stops when ctx is done; queued jobs left at
// that point are dropped.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
}

// Enqueue records a queued run and hands it to the worker. It returns
// ErrQueueFull without blocking when the queue has no room.
func (s *Service) Enqueue(ctx context.Context, jobType string, run Func) (string, error) {
	j := job{ID: uuid.NewString(), Type: jobType, Run: run}
	s.insertRun(ctx, j.ID, jobType, StatusQueued)
	select {
	case s.queue <- j:
		return j.ID, nil
	default:
		slog.Warn("job queue full", "jobType", jobType)
		s.finishRun(ctx, j.ID, StatusFailed, map[string]any{"error": ErrQueueFull.Error()})
		return "", ErrQueueFull
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run Func) (any, error) {
	j := job{ID: uuid.NewString(), Type: jobType, Run: run}
	s.insertRun(ctx, j.ID, jobType, StatusRunning)
	return s.runJob(ctx, j)
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			s.markRunning(ctx, j.ID)
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "jobId", j.ID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	details, err := j.Run(ctx)
	status := StatusCompleted
	recorded := details
	if err != nil {
		status = StatusFailed
		recorded = map[string]any{"error": err.Error()}
	}
	s.finishRun(ctx, j.ID, status, recorded)
	return details, err
}

func (s *Service) insertRun(ctx context.Context, id, jobType, status string) {
	if s.DB == nil {
		return
	}
	if _, err := s.DB.Exec(ctx, `
    INSERT INTO job_runs (id, job_type, status)
    VALUES ($1, $2, $3)
  `, id, jobType, status); err != nil {
		slog.Warn("job run insert failed", "jobType", jobType, "err", err)
	}
}

func (s *Service) markRunning(ctx context.Context, id string) {
	if s.DB == nil {
		return
	}
	if _, err := s.DB.Exec(ctx, `
    UPDATE job_runs SET status = $1, started_at = now() WHERE id = $2
  `, StatusRunning, id); err != nil {
		slog.Warn("job run update failed", "jobId", id, "err", err)
	}
}

func (s *Service) finishRun(ctx context.Context, id, status string, details any) {
	if s.DB == nil {
		return
	}
	detailsJSON, err := marshalDetails(details)
	if err != nil {
		slog.Warn("job details marshal failed", "jobId", id, "err", err)
	}
	if _, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, id); err != nil {
		slog.Warn("job run update failed", "jobId", id, "err", err)
	}
}

// ListRuns returns a window of runs, most recent first.
func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]Run, error) {
	if s.DB == nil {
		return []Run{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	offset = max(offset, 0)
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, job_type, status, details_json, started_at, completed_at
    FROM job_runs
    ORDER BY started_at DESC, id
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var details []byte
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &details, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		run.Details = json.RawMessage(details)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// marshalDetails always yields a JSON object or array; nil and scalar
// payloads become {}.
func marshalDetails(details any) ([]byte, error) {
	if details == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return []byte("{}"), err
	}
	if len(raw) == 0 || (raw[0] != '{' && raw[0] != '[') {
		return []byte("{}"), nil
	}
	return raw, nil
}
