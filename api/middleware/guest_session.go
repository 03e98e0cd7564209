package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/janiele376/projeto-pet-shop-fullstack/api/responses"
	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
)

// GuestSessionHeader carries the client-held guest session id.
const GuestSessionHeader = "X-Guest-Session"

// GuestSession requires a UUID guest session header and stores it on the
// context.
func GuestSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(GuestSessionHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, GuestSessionHeader+" header required"))
				return
			}
			if _, err := uuid.Parse(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, GuestSessionHeader+" must be a UUID"))
				return
			}

			ctx := WithGuestSession(r.Context(), raw)
			if logg != nil {
				ctx = logg.WithGuestSession(ctx, raw)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
