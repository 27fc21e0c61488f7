package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/internal/http/response"
	"github.com/Agastya221/society-gate-backend/pkg/auth"
	"github.com/Agastya221/society-gate-backend/pkg/logger"
)

type ctxKey string

const CtxPrincipal ctxKey = "principal"

// RequirePrincipal authenticates the bearer token and, when roles are
// given, restricts the route to those roles. Token issuance lives in
// the identity service; this side only verifies.
func RequirePrincipal(secret string, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(authz, "Bearer ")

			claims, err := auth.Parse(raw, secret)
			if err != nil {
				response.Unauthorized(w, "invalid bearer token")
				return
			}
			role, ok := domain.ParseRole(claims.Role)
			if !ok {
				response.Unauthorized(w, "unknown role")
				return
			}

			p := domain.Principal{
				ID:       claims.Sub,
				Name:     claims.Name,
				Role:     role,
				UnitID:   claims.UnitID,
				IsActive: true,
			}

			if len(roles) > 0 && !roleAllowed(role, roles) {
				response.WriteError(w, http.StatusForbidden, "role not allowed here", "ACCESS_DENIED")
				return
			}

			ctx := context.WithValue(r.Context(), CtxPrincipal, p)
			ctx = context.WithValue(ctx, logger.PrincipalIDKey, p.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}

// Principal returns the authenticated principal attached by
// RequirePrincipal; the zero value if the middleware did not run.
func Principal(r *http.Request) domain.Principal {
	v := r.Context().Value(CtxPrincipal)
	if v == nil {
		return domain.Principal{}
	}
	return v.(domain.Principal)
}
