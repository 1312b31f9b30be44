package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", query: "", wantLimit: 20, wantOffset: 0},
		{name: "explicit", query: "limit=5&offset=10", wantLimit: 5, wantOffset: 10},
		{name: "capped", query: "limit=1000", wantLimit: 100, wantOffset: 0},
		{name: "invalid ignored", query: "limit=-1&offset=x", wantLimit: 20, wantOffset: 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?"+tc.query, nil)
			got := ParsePagination(req, 20, 100)
			if got.Limit != tc.wantLimit || got.Offset != tc.wantOffset {
				t.Fatalf("got %+v, want limit %d offset %d", got, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}

func TestValidatorReject(t *testing.T) {
	v := NewValidator()
	v.Required("cityName", "  ", "is required")
	v.Range("year", 123, 1000, 9999, "must be a four-digit year")
	v.Range("year", 0, 1000, 9999, "zero is not set")
	v.Enum("format", "csv", []string{"xlsx", "pdf"}, "must be xlsx or pdf")

	issues := v.Issues()
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %+v", issues)
	}
	if issues[0].Field != "cityName" || issues[1].Field != "format" || issues[2].Field != "year" {
		t.Fatalf("expected issues sorted by field, got %+v", issues)
	}

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected reject")
	}
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "validation_error") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestValidatorNoIssues(t *testing.T) {
	v := NewValidator()
	v.Enum("format", "XLSX", []string{"xlsx", "pdf"}, "must be xlsx or pdf")
	if v.Reject(httptest.NewRecorder(), "") {
		t.Fatal("expected no rejection")
	}
}
