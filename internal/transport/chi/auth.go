package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/kailas-cloud/entrydex/internal/domain/access"
)

// exemptPaths are routes that ignore credentials (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type principalKey struct{}

// ContextWithPrincipal stores the authenticated principal in the context.
func ContextWithPrincipal(ctx context.Context, p access.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the request principal, anonymous if none.
func PrincipalFromContext(ctx context.Context) access.Principal {
	if p, ok := ctx.Value(principalKey{}).(access.Principal); ok {
		return p
	}
	return access.Anonymous()
}

// BearerAuthMiddleware resolves Bearer tokens to principals.
// Requests without an Authorization header stay anonymous; a malformed or
// unknown token is rejected. If principals is empty, authentication is
// disabled and every request is anonymous.
func BearerAuthMiddleware(principals map[string]access.Principal) func(http.Handler) http.Handler {
	valid := make(map[string]access.Principal, len(principals))
	for k, p := range principals {
		if k != "" {
			valid[k] = p
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					ErrorCodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			p, ok := valid[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}
