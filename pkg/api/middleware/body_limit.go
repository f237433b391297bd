package middleware

import (
	"fmt"
	"net/http"
)

// BodySizeLimit caps request bodies at limit() bytes. The limit is read per
// request so a configuration reload applies without rebuilding the chain.
// A declared Content-Length over the limit is rejected before the handler
// runs; undeclared bodies are capped with http.MaxBytesReader and the
// handler sees *http.MaxBytesError when it reads past the limit.
func BodySizeLimit(limit func() int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			maxBytes := limit()
			if maxBytes <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxBytes {
				writeError(w, r, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body of %d bytes exceeds the %d byte limit", r.ContentLength, maxBytes))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
