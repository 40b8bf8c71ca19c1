package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gestao-virtual/gvbackend/models"
	"github.com/gestao-virtual/gvbackend/repository"
	"github.com/gestao-virtual/gvbackend/services"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserContextKey is the key used to store the user object in the request context.
	UserContextKey ContextKey = "user"
)

// AuthMiddleware creates a middleware handler for JWT authentication.
// It verifies the token and, if valid, fetches the user and adds them to the
// request context. Inactive accounts are rejected even with a valid token.
func AuthMiddleware(jwtKey []byte, userRepo repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				http.Error(w, "Authorization header format must be Bearer {token}", http.StatusUnauthorized)
				return
			}
			tokenString := parts[1]

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return jwtKey, nil
			})

			if err != nil {
				if err == jwt.ErrSignatureInvalid {
					http.Error(w, "Invalid token signature", http.StatusUnauthorized)
					return
				}
				http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			if !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			userID, err := strconv.ParseUint(claims.Subject, 10, 32)
			if err != nil {
				http.Error(w, "Invalid user ID in token", http.StatusUnauthorized)
				return
			}

			user, err := userRepo.GetByID(uint(userID))
			if err != nil {
				// the user may have been deleted after the token was issued
				http.Error(w, "User not found", http.StatusUnauthorized)
				return
			}
			if !user.IsActive() {
				http.Error(w, "Account is inactive", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user placed by AuthMiddleware.
func UserFromContext(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// RequireModule checks that the authenticated user's resolved permissions
// grant the given module code. An optional project context is taken from the
// "project_id" query parameter so project delegations apply. Must run after
// AuthMiddleware.
func RequireModule(resolver *services.PermissionResolver, moduleCode string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r)
			if !ok {
				http.Error(w, "User not found in context", http.StatusInternalServerError)
				return
			}

			projectID := optionalUintQuery(r, "project_id")
			set, err := resolver.Resolve(user.ID, projectID)
			if err != nil {
				WriteServiceError(w, err)
				return
			}

			if !set.Has(moduleCode) {
				http.Error(w, fmt.Sprintf("Forbidden: requires module '%s'", moduleCode), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin restricts a subtree to administrative sessions (bypass levels
// or COMPANY_ADMIN and above). Must run after AuthMiddleware.
func RequireAdmin(resolver *services.PermissionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r)
			if !ok {
				http.Error(w, "User not found in context", http.StatusInternalServerError)
				return
			}

			session, err := resolver.ResolveSession(user.ID, nil)
			if err != nil {
				WriteServiceError(w, err)
				return
			}
			if !session.IsAdmin {
				http.Error(w, "Forbidden: administrator access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// optionalUintQuery parses an optional positive integer query parameter.
// Malformed values are treated as absent.
func optionalUintQuery(r *http.Request, name string) *uint {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	val := uint(parsed)
	return &val
}
