package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/middleware"
)

// Collect produces the HTTP middleware that records exchange counters and
// response time.
func Collect(opts ...Option) func(next http.Handler) http.Handler {
	cfg := newCollectConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			startTime := time.Now()

			defer func() {
				if cfg.isSkipPath(r) {
					return
				}

				code := strconv.Itoa(ww.Status())
				method := r.Method

				totalExchangesToUri.WithLabelValues(code, cfg.normalize(r), method).Inc()
				totalExchanges.WithLabelValues(code, method).Inc()
				exchangeResponseTime.Observe(time.Since(startTime).Seconds())
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
