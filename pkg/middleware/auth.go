package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/auth"
	"github.com/verityux/verity/pkg/contextkeys"
	"github.com/verityux/verity/pkg/httputil"
)

// TokenResolver turns a bearer token into a caller
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*auth.AuthUser, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	resolver TokenResolver
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver TokenResolver, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteAPIError(w, r, apperr.Unauthorized("Authentication required"))
			return
		}

		// Format: "Bearer <token>"
		scheme, token, ok := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			httputil.WriteAPIError(w, r, apperr.Unauthorized("Invalid authorization header"))
			return
		}

		user, err := m.resolver.Resolve(r.Context(), token)
		if err != nil {
			httputil.WriteAPIError(w, r, err)
			return
		}

		ctx := auth.WithUser(r.Context(), user)
		ctx = contextkeys.WithSubject(ctx, user.SubjectID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthUser extracts the caller from the request
func GetAuthUser(r *http.Request) *auth.AuthUser {
	user, _ := auth.UserFromContext(r.Context())
	return user
}

func guard(check func(*auth.AuthUser) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetAuthUser(r)
			if user == nil {
				httputil.WriteAPIError(w, r, apperr.Unauthorized("Authentication required"))
				return
			}
			if err := check(user); err != nil {
				httputil.WriteAPIError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin rejects callers that are not platform super admins
func RequireSuperAdmin(next http.Handler) http.Handler {
	return guard(auth.RequireSuperAdmin)(next)
}

// RequireIntervieweeTenant rejects callers outside the interviewee tenant
func RequireIntervieweeTenant(next http.Handler) http.Handler {
	return guard(auth.RequireIntervieweeTenant)(next)
}

// RequireOrganizationTenant rejects callers outside the organization tenant,
// super admins included
func RequireOrganizationTenant(next http.Handler) http.Handler {
	return guard(auth.RequireOrganizationTenant)(next)
}
