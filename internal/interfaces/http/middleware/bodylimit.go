package middleware

import (
	"errors"
	"net/http"

	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
)

// ErrBodyTooLarge is the message of the 413 sent for oversized bodies.
const ErrBodyTooLarge = "Request body too large"

// BodyLimit caps request bodies at maxBytes.  A declared Content-Length above
// the cap is refused with 413 immediately; bodies without a length are
// wrapped in http.MaxBytesReader so the handler's read fails instead.
func BodyLimit(maxBytes int64, metrics *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil && r.Body != http.NoBody {
				if r.ContentLength > maxBytes {
					prometheus.RecordRejection(metrics, "body_too_large")
					writeJSONError(w, http.StatusRequestEntityTooLarge, ErrBodyTooLarge)
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsBodyTooLarge reports whether err came from reading past the cap set by
// BodyLimit.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
