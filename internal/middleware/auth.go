package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/radif/attachments/internal/response"
)

// RequireAuth returns middleware that validates an HS256 Bearer JWT and tags the
// request logger with its subject. The subject is not used to authorize
// attachment access; key prefixes remain the only scope check.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			scheme, raw, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || raw == "" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			var claims jwt.RegisteredClaims
			token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			logger := zerolog.Ctx(r.Context()).With().Str("subject", claims.Subject).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
		})
	}
}
