package middleware

import "net/http"

// DefaultMaxBodyBytes caps request bodies at 512KB. The largest
// legitimate payload is a notification channel config; everything else
// is a trigger or a status patch.
const DefaultMaxBodyBytes = 512 * 1024

// MaxBodySize returns middleware that limits request body size.
// Use for methods that may have a body; GET/HEAD/DELETE are not limited.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
