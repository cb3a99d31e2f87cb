package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const principalContextKey contextKey = "querygate_principal"

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// Guard is the single gate in front of every data route.
type Guard struct {
	verifier Verifier
	logger   *slog.Logger
}

func NewGuard(v Verifier, logger *slog.Logger) *Guard {
	return &Guard{verifier: v, logger: logger}
}

// Authorize resolves a raw token to a Principal. Any failure is reported as
// ErrUnauthorized after the cause is logged.
func (g *Guard) Authorize(ctx context.Context, rawToken string) (*Principal, error) {
	if rawToken == "" {
		g.logger.DebugContext(ctx, "missing bearer token")
		return nil, ErrUnauthorized
	}
	p, err := g.verifier.Verify(ctx, rawToken)
	if err != nil {
		g.logger.WarnContext(ctx, "token rejected", "reason", TokenReasonOf(err).String(), "err", err)
		return nil, ErrUnauthorized
	}
	return p, nil
}

// Middleware wraps next so it only runs for requests carrying a valid bearer
// token. The resolved Principal is available via PrincipalFromContext.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := g.Authorize(r.Context(), BearerToken(r))
		if err != nil {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer" header. The
// scheme is matched case-insensitively.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func RequireRole(next http.HandlerFunc, roles ...Role) http.HandlerFunc {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeUnauthorized(w)
			return
		}
		if _, ok := allowed[user.Role]; !ok {
			writeDetail(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, "invalid or expired token")
}
