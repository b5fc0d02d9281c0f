// Package middleware provides HTTP middleware for request IDs, Prometheus
// metrics and request timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
)

// otherRoute labels every path outside the known prefixes.
const otherRoute = "other"

// Metrics records request count, latency and in-flight requests per route.
// Routes are the known prefixes; anything else is "other" so label
// cardinality stays bounded. A nil m disables recording.
func Metrics(m *metrics.Metrics, knownPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			begin := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			tw := newTrackingWriter(w)
			next.ServeHTTP(tw, r)

			route := routeOf(r.URL.Path, knownPrefixes)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(tw.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(begin).Seconds())
		})
	}
}

func routeOf(path string, prefixes []string) string {
	if len(prefixes) == 0 {
		return path
	}
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(path, p); ok && (rest == "" || rest[0] == '/') {
			return p
		}
	}
	return otherRoute
}
