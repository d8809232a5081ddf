package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/middleware"
)

// GetOperator retrieves the authenticated operator from the context.
// This is a convenience wrapper around middleware.GetOperator.
func GetOperator(ctx context.Context) string {
	return middleware.GetOperator(ctx)
}

// locationParam returns the decoded {location} path segment.
func locationParam(r *http.Request) string {
	raw := chi.URLParam(r, "location")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
