package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// SessionResolver validates an opaque session token against the store.
type SessionResolver interface {
	Authenticate(ctx context.Context, token string) (userID string, err error)
}

// SessionResolverFunc adapts a function to the SessionResolver interface.
type SessionResolverFunc func(ctx context.Context, token string) (string, error)

// Authenticate implements SessionResolver.
func (f SessionResolverFunc) Authenticate(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Middleware provides HTTP middleware that resolves the caller identity
// from the session cookie, falling back to a bearer token.
type Middleware struct {
	Config   Config
	Sessions SessionResolver
	Skipper  Skipper
}

// NewMiddleware constructs a middleware with optional skipper.
func NewMiddleware(cfg Config, sessions SessionResolver, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Sessions: sessions, Skipper: skipper}
}

// Wrap wraps an http.Handler with authentication. Requests that cannot be
// resolved to an identity are rejected before the handler runs.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.resolve(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		ctx := WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) resolve(r *http.Request) (*Identity, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" && m.Sessions != nil {
		userID, err := m.Sessions.Authenticate(r.Context(), cookie.Value)
		if err == nil {
			return &Identity{UserID: userID, SessionToken: cookie.Value}, nil
		}
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingCredentials
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, ErrInvalidToken
	}
	return ParseBearer(strings.TrimSpace(header[len("Bearer "):]), m.Config)
}
