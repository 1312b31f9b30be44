package contributionhandler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"contribcalc/internal/domain/contribution"
	"contribcalc/internal/platform/config"
	"contribcalc/internal/platform/jobs"
	"contribcalc/internal/platform/metrics"
	"contribcalc/internal/platform/spreadsheet"
	"contribcalc/internal/requestctx"
	"contribcalc/internal/transport/http/api"
	"contribcalc/internal/transport/http/middleware"
	"contribcalc/internal/transport/http/shared"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// RowReader turns an uploaded workbook into header-keyed rows.
type RowReader func(r io.Reader, filename string) ([]map[string]any, error)

type Options struct {
	DefaultCity    string
	MaxUploadBytes int64
	PDF            contribution.PDFOptions
	Status         config.Status
	// Throttle wraps the upload and calculate routes when set.
	Throttle func(http.Handler) http.Handler
}

type Handler struct {
	Service  *contribution.Service
	Jobs     *jobs.Service
	Metrics  *metrics.Collector
	ReadRows RowReader
	Options  Options
}

func NewHandler(svc *contribution.Service, jobsSvc *jobs.Service, collector *metrics.Collector, opts Options) *Handler {
	return &Handler{
		Service:  svc,
		Jobs:     jobsSvc,
		Metrics:  collector,
		ReadRows: spreadsheet.ReadRows,
		Options:  opts,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.Options.Throttle != nil {
			r.Use(h.Options.Throttle)
		}
		r.Post("/upload/cities", h.handleUpload(contribution.KindCities))
		r.Post("/upload/salaries", h.handleUpload(contribution.KindSalaries))
		r.Post("/calculate", h.handleCalculate)
	})
	r.Get("/results", h.handleListResults)
	r.Get("/results/export", h.handleExportResults)
	r.Get("/cities", h.handleListCities)
	r.Get("/jobs", h.handleListJobs)
	r.Get("/status", h.handleStatus)
	r.Get("/metrics", h.handleMetrics)
}

type uploadResponse struct {
	Kind  contribution.Kind `json:"kind"`
	Count int               `json:"count"`
}

func (h *Handler) handleUpload(kind contribution.Kind) http.HandlerFunc {
	jobType := jobs.JobCitiesImport
	if kind == contribution.KindSalaries {
		jobType = jobs.JobSalariesImport
	}
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetRequestID(r.Context())

		if err := r.ParseMultipartForm(h.Options.MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "upload exceeds size limit", reqID)
				return
			}
			api.Fail(w, http.StatusBadRequest, "invalid_upload", "expected multipart form with a file field", reqID)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "missing_file", "file field is required", reqID)
			return
		}
		defer file.Close()

		if h.Options.MaxUploadBytes > 0 && header.Size > h.Options.MaxUploadBytes {
			api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "upload exceeds size limit", reqID)
			return
		}
		if !spreadsheet.Supported(header.Filename) {
			api.Fail(w, http.StatusBadRequest, "unsupported_format", "only .xlsx and .xls files are accepted", reqID)
			return
		}

		rows, err := h.ReadRows(file, header.Filename)
		if err != nil {
			requestctx.Logger(r.Context()).Warn("spreadsheet read failed", "kind", kind, "file", header.Filename, "err", err)
			api.Fail(w, http.StatusBadRequest, "invalid_spreadsheet", "could not read workbook: "+err.Error(), reqID)
			return
		}

		details, err := h.Jobs.RunNow(r.Context(), jobType, func(ctx context.Context) (any, error) {
			count, err := h.Service.Import(ctx, kind, rows)
			if err != nil {
				return nil, err
			}
			return uploadResponse{Kind: kind, Count: count}, nil
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp := details.(uploadResponse)
		h.Metrics.RecordImport(string(kind), resp.Count)
		api.Success(w, resp, reqID)
	}
}

type calculateRequest struct {
	CityName   string `json:"cityName"`
	Year       int    `json:"year"`
	StrictYear bool   `json:"strictYear"`
}

type jobAccepted struct {
	JobID string `json:"jobId"`
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var req calculateRequest
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be a JSON object", reqID)
		return
	}
	opts := contribution.RunOptions{
		CityName:   strings.TrimSpace(req.CityName),
		Year:       req.Year,
		StrictYear: req.StrictYear,
	}
	if opts.CityName == "" {
		opts.CityName = h.Options.DefaultCity
	}

	v := shared.NewValidator()
	v.Required("cityName", opts.CityName, "is required when no default city is configured")
	v.Range("year", opts.Year, 1000, 9999, "must be a four-digit year")
	if v.Reject(w, reqID) {
		return
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		jobID, err := h.Jobs.Enqueue(r.Context(), jobs.JobCalculation, func(ctx context.Context) (any, error) {
			summary, err := h.runCalculation(ctx, opts)
			if err != nil {
				return nil, err
			}
			return jobDetails(summary), nil
		})
		if err != nil {
			api.Fail(w, http.StatusServiceUnavailable, "queue_full", "calculation queue is full, retry later", reqID)
			return
		}
		api.Accepted(w, jobAccepted{JobID: jobID}, reqID)
		return
	}

	var summary contribution.RunSummary
	_, err := h.Jobs.RunNow(r.Context(), jobs.JobCalculation, func(ctx context.Context) (any, error) {
		var err error
		summary, err = h.runCalculation(ctx, opts)
		if err != nil {
			return nil, err
		}
		return jobDetails(summary), nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.Success(w, summary, reqID)
}

func (h *Handler) runCalculation(ctx context.Context, opts contribution.RunOptions) (contribution.RunSummary, error) {
	summary, err := h.Service.Run(ctx, opts)
	h.Metrics.RecordCalculation(summary.Employees, err)
	return summary, err
}

// jobDetails is the summary without per-employee rows, for job_runs.
func jobDetails(s contribution.RunSummary) map[string]any {
	return map[string]any{
		"runId":              s.RunID,
		"cityName":           s.CityName,
		"policyYear":         s.PolicyYear,
		"employees":          s.Employees,
		"totalCompanyAmount": s.TotalCompanyAmount,
		"mixedYearEmployees": s.MixedYearEmployees,
	}
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.Service.ListResults(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []contribution.Result{}
	}
	api.Success(w, results, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportResults(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "xlsx"
	}
	v := shared.NewValidator()
	v.Enum("format", format, []string{"xlsx", "pdf"}, "must be xlsx or pdf")
	if v.Reject(w, reqID) {
		return
	}

	results, err := h.Service.ListResults(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	contentType := contentTypeXLSX
	if format == "pdf" {
		contentType = contentTypePDF
		err = contribution.WriteResultsPDF(&buf, results, h.Options.PDF)
	} else {
		err = contribution.WriteResultsXLSX(&buf, results)
	}
	if err != nil {
		requestctx.Logger(r.Context()).Error("results export failed", "format", format, "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "could not render results", reqID)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="contribution-results.%s"`, format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		requestctx.Logger(r.Context()).Warn("export write failed", "err", err)
	}
}

func (h *Handler) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.Service.ListCities(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if cities == nil {
		cities = []contribution.City{}
	}
	api.Success(w, cities, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 20, 100)
	runs, err := h.Jobs.ListRuns(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Options.Status, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
}

// writeError maps domain failures to 400 and everything else to 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())

	var missing *contribution.MissingFieldError
	var parseErr *contribution.ParseError
	var mixed *contribution.MixedYearError
	switch {
	case errors.As(err, &missing):
		api.FailWithDetails(w, http.StatusBadRequest, "missing_fields", err.Error(),
			map[string]any{"row": missing.Row, "fields": missing.Fields}, reqID)
	case errors.As(err, &parseErr):
		api.FailWithDetails(w, http.StatusBadRequest, "parse_error", err.Error(),
			map[string]any{"row": parseErr.Row, "field": parseErr.Field, "value": fmt.Sprint(parseErr.Value), "reason": parseErr.Reason}, reqID)
	case errors.As(err, &mixed):
		api.FailWithDetails(w, http.StatusBadRequest, "mixed_years", err.Error(),
			map[string]any{"years": mixed.Years}, reqID)
	case errors.Is(err, contribution.ErrEmptyInput):
		api.Fail(w, http.StatusBadRequest, "empty_input", err.Error(), reqID)
	case errors.Is(err, contribution.ErrPolicyNotFound):
		api.Fail(w, http.StatusBadRequest, "policy_not_found", err.Error(), reqID)
	case errors.Is(err, contribution.ErrNoSalaries):
		api.Fail(w, http.StatusBadRequest, "no_salaries", err.Error(), reqID)
	default:
		requestctx.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", reqID)
	}
}

func decodeOptionalJSON(body io.Reader, dst any) error {
	if body == nil {
		return nil
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
