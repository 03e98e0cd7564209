package middleware

import (
	"context"
	"net/http"
	"regexp"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Inbound ids end up in log lines, headers and error bodies, so only short
// opaque tokens from the storefront or gateway are trusted.
var inboundRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID gives every request a correlation id. It is echoed in
// X-Request-Id, stamped on log lines and stored under chi's request id key,
// where error responses pick it up.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !inboundRequestID.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), logg, id)))
		})
	}
}

func withRequestID(ctx context.Context, logg *logger.Logger, id string) context.Context {
	ctx = context.WithValue(ctx, chimw.RequestIDKey, id)
	if logg != nil {
		ctx = logg.WithRequestID(ctx, id)
	}
	return ctx
}
