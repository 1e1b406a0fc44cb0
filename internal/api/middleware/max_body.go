package middleware

import (
	"net/http"

	"github.com/cloo-solutions/cardsmith/internal/api"
)

const (
	// DefaultMaxJSONBody bounds JSON request bodies.
	DefaultMaxJSONBody int64 = 10 << 20
	// DefaultMaxUploadBody bounds multipart uploads, including form overhead.
	DefaultMaxUploadBody int64 = 51 << 20
)

// MaxBodyBytes rejects declared oversize bodies up front and caps reads of
// the rest at limit.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
