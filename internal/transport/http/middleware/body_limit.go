package middleware

import "net/http"

// BodyLimit caps request bodies on mutating methods. Multipart uploads get a
// little headroom over maxBytes for part headers and boundaries.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
			}
			next.ServeHTTP(w, r)
		})
	}
}

const multipartOverhead = 64 << 10
