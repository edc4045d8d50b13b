package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"willdraft-go/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

func writeJSONError(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// JWTAuth requires a valid bearer token and stores its claims on the request
// context.
func JWTAuth(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Debug("no authorization header", zap.String("path", r.URL.Path))
				writeJSONError(w, http.StatusUnauthorized, map[string]string{"error": "Authorization header required"})
				return
			}

			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
				log.Debug("malformed authorization header", zap.String("path", r.URL.Path))
				writeJSONError(w, http.StatusUnauthorized, map[string]string{"error": "Invalid authorization header format"})
				return
			}

			claims, err := utils.ValidateToken(bearerToken[1])
			if err != nil {
				log.Info("token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				writeJSONError(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuth must run after JWTAuth.
func AdminAuth(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				writeJSONError(w, http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized - No user context",
				})
				return
			}

			if !claims.IsAdmin {
				log.Warn("admin endpoint denied",
					zap.String("user_id", claims.UserID), zap.String("path", r.URL.Path))
				writeJSONError(w, http.StatusForbidden, map[string]string{
					"error":   "Admin access required",
					"message": "This endpoint requires admin privileges",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetUserFromContext(r *http.Request) *utils.Claims {
	if claims, ok := r.Context().Value(UserContextKey).(*utils.Claims); ok {
		return claims
	}
	return nil
}
