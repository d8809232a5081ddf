package middleware

import (
	"net/http"
	"strings"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/models"
)

var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Referrer-Policy":           "no-referrer",
	"Permissions-Policy":        "geolocation=(), camera=(), microphone=()",

	// Handlers serving cacheable data replace this.
	"Cache-Control": "no-store",
}

// SecurityHeaders sets the API's fixed response headers before the handler
// runs, so a handler can still override any of them.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests a proxy reports as plain HTTP with a 403
// problem. Requests without X-Forwarded-Proto (direct or local) and the
// health checks pass through. When enabled is false it is a no-op.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proto := r.Header.Get("X-Forwarded-Proto")
			if proto == "" || strings.EqualFold(proto, "https") || isHealthCheck(r) {
				next.ServeHTTP(w, r)
				return
			}

			models.NewProblem(
				models.ProblemTypeTLSRequired,
				"TLS required",
				http.StatusForbidden,
				GetRequestID(r.Context()),
			).
				WithDetail("this endpoint requires HTTPS").
				WithInstance(r.URL.Path).
				Write(w)
		})
	}
}

func isHealthCheck(r *http.Request) bool {
	for _, p := range healthCheckPaths {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}
