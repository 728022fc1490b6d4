package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/sizefit/sizefit/pkg/metrics"
)

// ConcurrencyLimit caps the number of in-flight requests. A full
// semaphore rejects immediately rather than queueing: image searches
// are expensive and the caller is better served by a fast 503.
func ConcurrencyLimit(max int) func(http.Handler) http.Handler {
	sem := make(chan struct{}, max)
	var active atomic.Int64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case sem <- struct{}{}:
			default:
				metrics.RecordConcurrencyLimitExceeded()
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":"Service busy, please try again"}`))
				return
			}
			metrics.UpdateConcurrency(int(active.Add(1)))
			defer func() {
				metrics.UpdateConcurrency(int(active.Add(-1)))
				<-sem
			}()

			next.ServeHTTP(w, r)
		})
	}
}
