package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const adminRole = "admin"

// APIKeyHeader carries the shared API key on agent routes.
const APIKeyHeader = "X-API-Key"

// unauthorized writes an error body directly; the presenter package sits
// above middleware and cannot be imported here.
func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":          msg,
		"correlation_id": CorrelationCtx(r.Context()),
	})
}

// APIKeyAuth guards agent routes with a shared API key. How the key was
// issued is outside the core's concern; this is only the capability check
// performed before the pipeline is invoked.
func APIKeyAuth(accepts func(raw string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !accepts(r.Header.Get(APIKeyHeader)) {
				unauthorized(w, r, "invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminAuth requires an HMAC JWT with the admin role on admin routes.
func AdminAuth(signingKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			tokenStr := strings.TrimPrefix(auth, "Bearer ")

			if tokenStr == "" {
				unauthorized(w, r, "login required")
				return
			}

			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method")
				}
				return signingKey, nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, r, "invalid session token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				unauthorized(w, r, "invalid claims")
				return
			}

			roles, ok := claims["roles"].([]any)
			if !ok {
				unauthorized(w, r, "invalid claims")
				return
			}

			hasPrivilege := false
			for _, roleAny := range roles {
				if roleStr, ok := roleAny.(string); ok && roleStr == adminRole {
					hasPrivilege = true
					break
				}
			}
			if !hasPrivilege {
				unauthorized(w, r, "insufficient privileges")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
