// Package auth resolves the authenticated caller for incoming requests,
// from either the browser session cookie or an API bearer token.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the browser session cookie.
const CookieName = "codepad_session"

// Config holds bearer-token verification parameters.
type Config struct {
	Secret string
	Issuer string
}

// Identity is the authenticated caller resolved by the middleware.
type Identity struct {
	UserID string
	// SessionToken is set for cookie-authenticated callers and empty for
	// bearer-token callers.
	SessionToken string
}

// ErrMissingCredentials is returned when neither a session cookie nor an
// Authorization header is present.
var ErrMissingCredentials = errors.New("missing credentials")

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

// ParseBearer validates a JWT and returns the identity it asserts.
func ParseBearer(token string, cfg Config) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingCredentials
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: subject}, nil
}
