package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/janiele376/projeto-pet-shop-fullstack/api/responses"
	pkgAuth "github.com/janiele376/projeto-pet-shop-fullstack/pkg/auth"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/config"
	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
)

var errNoBearer = errors.New("missing bearer credentials")

// Auth admits requests carrying a valid customer token from the identity
// service and stores the cid claim as the request's customer.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err == nil {
				var claims *pkgAuth.AccessTokenClaims
				if claims, err = pkgAuth.ParseAccessToken(cfg, token); err == nil {
					ctx := WithCustomerID(r.Context(), claims.CustomerID)
					if logg != nil {
						ctx = logg.WithCustomerID(ctx, claims.CustomerID)
					}
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="petshop"`)
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid or missing token"))
		})
	}
}

// bearerToken reads "Authorization: Bearer <token>"; the scheme is case-insensitive.
func bearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errNoBearer
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errNoBearer
	}
	return token, nil
}
