package middleware

import (
	"net/http"
	"time"

	"bidmarket/internal/app/logger"

	"github.com/rs/zerolog/hlog"
)

// Log attaches the logger to the request context and logs each request with
// timing and status.
func Log(l logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.NewHandler(l.Logger)

		accessHandler := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("HTTP request")
		})

		return h(accessHandler(next))
	}
}
