package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					recovered(log, w, r, v)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func recovered(log zerolog.Logger, w http.ResponseWriter, r *http.Request, v any) {
	err := panicError(v)
	if errors.Is(err, http.ErrAbortHandler) {
		panic(v)
	}

	requestID := GetRequestID(r.Context())
	log.Error().
		Err(err).
		Str("request_id", requestID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Bytes("stack", debug.Stack()).
		Msg("panic recovered")

	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, "panic")

	models.NewInternalError(requestID, "an unexpected error occurred").
		WithInstance(r.URL.Path).
		Write(w)
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
