package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is rejected up front; otherwise reads past the cap fail with
// *http.MaxBytesError, which handlers report as 413.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limit := chimw.RequestSize(maxBytes)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
