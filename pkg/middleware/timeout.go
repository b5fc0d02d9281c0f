package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const timeoutBody = `{"error":"request timeout"}` + "\n"

// Timeout answers 504 when next has not started a response within d.
// Writes from next after that are discarded. d <= 0 disables the limit.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := newTrackingWriter(w)
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-finished:
				return
			case <-ctx.Done():
			}
			if !tw.seal() {
				<-finished
				return
			}
			slog.WarnContext(ctx, "request exceeded deadline",
				"method", r.Method,
				"path", r.URL.Path,
				"limit", d,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGatewayTimeout)
			_, _ = w.Write([]byte(timeoutBody))
		})
	}
}
