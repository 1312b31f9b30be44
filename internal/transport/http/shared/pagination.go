package shared

import (
	"net/http"
	"strconv"
)

// Pagination is a limit/offset window read from the query string.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads ?limit and ?offset. Invalid or negative values fall
// back to defaultLimit and 0; limit is capped at maxLimit when maxLimit > 0.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()
	page := Pagination{
		Limit:  queryInt(q.Get("limit"), 1, defaultLimit),
		Offset: queryInt(q.Get("offset"), 0, 0),
	}
	if maxLimit > 0 {
		page.Limit = min(page.Limit, maxLimit)
	}
	return page
}

func queryInt(raw string, floor, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < floor {
		return fallback
	}
	return v
}
