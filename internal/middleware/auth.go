// File: internal/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/calyra-app/calyra/internal/services/user_services"
)

// NewJWTMiddleware validates the session token on every API request.
// The token is read from the auth_token cookie or an Authorization
// bearer header; on success the user id and identity class land in the
// request context.
func NewJWTMiddleware(authService *user_services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if cookie, err := r.Cookie("auth_token"); err == nil {
					token = cookie.Value
				}
			}
			if token == "" {
				log.Printf("[AuthMiddleware] Missing credentials for %s %s", r.Method, r.URL.Path)
				writeAuthError(w)
				return
			}

			userID, userType, err := authService.ValidateToken(token)
			if err != nil {
				log.Printf("[AuthMiddleware] Invalid token: %v", err)
				writeAuthError(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, UserTypeKey, userType)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    "unauthorized",
		"message": "Authentication required.",
	})
}
