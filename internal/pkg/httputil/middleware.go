package httputil

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/internal/pkg/metrics"
)

type contextKey string

// principalKey stores the authenticated principal on the request context.
const principalKey contextKey = "principal"

// TokenVerifier verifies an access token and returns the principal it encodes.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*domain.Principal, error)
}

// BearerExtractor extracts a bearer token from an Authorization header value.
// Returns "" when the header does not match "Bearer <token>".
type BearerExtractor func(header string) string

// AuthMiddleware authenticates requests via bearer tokens. It is an
// explicitly constructed component injected into route groups, so tests
// can substitute a fake token verifier.
type AuthMiddleware struct {
	verifier TokenVerifier
	extract  BearerExtractor
}

// NewAuthMiddleware creates an AuthMiddleware backed by the given verifier.
func NewAuthMiddleware(verifier TokenVerifier, extract BearerExtractor) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, extract: extract}
}

// Authenticate requires a valid bearer token and attaches the principal
// to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			metrics.RecordAuthFailure("missing_header")
			Error(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		token := m.extract(authHeader)
		if token == "" {
			metrics.RecordAuthFailure("malformed_header")
			Error(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		principal, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			metrics.RecordAuthFailure("invalid_token")
			Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthenticate attaches a principal when a valid bearer token is
// present. A missing header passes through anonymously, but a header
// that is present must still verify.
func (m *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := m.extract(authHeader)
		if token == "" {
			metrics.RecordAuthFailure("malformed_header")
			Error(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		principal, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			metrics.RecordAuthFailure("invalid_token")
			Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPrincipal extracts the authenticated principal from context.
// Returns nil for anonymous requests.
func GetPrincipal(ctx context.Context) *domain.Principal {
	if p, ok := ctx.Value(principalKey).(*domain.Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a context carrying the given principal. Test helper.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// RequireRole creates middleware that rejects principals whose role does
// not match. Admins pass every role check.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if principal.Role != role && !principal.IsAdmin() {
				metrics.RecordAuthFailure("role_denied")
				Error(w, http.StatusForbidden, "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireManagerOrAdmin allows only managers and admins through.
func RequireManagerOrAdmin() func(http.Handler) http.Handler {
	return RequireRole(domain.RoleManager)
}

// RequirePermissions creates middleware enforcing that the principal
// holds every listed permission.
func RequirePermissions(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			for _, perm := range required {
				if !domain.HasPermission(principal.Permissions, perm) {
					metrics.RecordAuthFailure("permission_denied")
					Error(w, http.StatusForbidden, "insufficient permissions")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnershipOrAdmin creates middleware that compares the principal's
// user id against the named URL parameter. Admins bypass the comparison.
func RequireOwnershipOrAdmin(urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if !principal.IsAdmin() && chi.URLParam(r, urlParam) != principal.UserID {
				metrics.RecordAuthFailure("ownership_denied")
				Error(w, http.StatusForbidden, "access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware handles preflight requests and adds CORS headers.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
