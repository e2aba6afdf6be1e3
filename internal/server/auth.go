package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"promptboard/internal/engine"
	"promptboard/internal/engine/auth"
)

type principalKey struct{}

func withPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok && p.Email != ""
}

// ownerFromContext returns the caller's email or a 401.
func ownerFromContext(ctx context.Context) (string, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok {
		return p.Email, nil
	}
	return "", newAPIError(http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// sessionToken reads Authorization: Bearer first, then X-Session-Token.
// present reports whether the caller tried to authenticate at all.
func sessionToken(req *http.Request) (token string, present bool) {
	if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
		t, ok := bearerToken(authz)
		if !ok {
			return "", true
		}
		return t, true
	}
	if t := strings.TrimSpace(req.Header.Get("X-Session-Token")); t != "" {
		return t, true
	}
	return "", false
}

func publicPaths(basePath string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, p := range []string{"health", "auth/register", "auth/login", "interpret-intent", "interpret-intent/options", "openapi.json"} {
		set[path.Join("/", basePath, p)] = struct{}{}
	}
	return set
}

// newAuthMiddleware attaches the session principal to the request context.
// Credentials that fail to verify are rejected even on public routes.
func newAuthMiddleware(basePath string, e engine.Engine, logger *zap.Logger) func(http.Handler) http.Handler {
	public := publicPaths(basePath)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if req.Method == http.MethodOptions {
				next.ServeHTTP(w, req)
				return
			}
			_, isPublic := public[strings.TrimSuffix(req.URL.Path, "/")]

			token, present := sessionToken(req)
			if !present {
				if isPublic {
					next.ServeHTTP(w, req)
					return
				}
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "Unauthorized", nil))
				return
			}
			principal, err := e.Auth().Authenticate(req.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					logger.Error("authenticate session", zap.Error(err))
				}
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), principal)))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.GetStatus())
	_ = json.NewEncoder(w).Encode(err)
}
