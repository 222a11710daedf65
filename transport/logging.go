package transport

import (
	"log/slog"
	"net/http"
	"time"
)

// Logging writes one record per outbound call. Headers and bodies are never
// logged.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("host", r.URL.Host),
				slog.String("path", r.URL.Path),
				slog.Bool("authenticated", r.Header.Get("Authorization") != ""),
				slog.Duration("dur", time.Since(start)),
			}
			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				attrs = append(attrs, slog.String("request_id", rid))
			}

			level := slog.LevelDebug
			switch {
			case err != nil:
				level = slog.LevelWarn
				attrs = append(attrs, slog.String("error", err.Error()))
			case resp != nil:
				attrs = append(attrs, slog.Int("status", resp.StatusCode))
				if resp.StatusCode >= 500 {
					level = slog.LevelWarn
				}
			}
			l.LogAttrs(r.Context(), level, "http client", attrs...)
			return resp, err
		})
	}
}
