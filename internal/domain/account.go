package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound is returned for missing or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrWeakPassword rejects passwords below the minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrInvalidEmail rejects empty or malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email address")
)

// User is a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Session is a cookie-backed login session.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AccountStore captures persistence operations for users and sessions.
type AccountStore interface {
	// CreateUser returns ErrEmailTaken when the email is already in use.
	CreateUser(ctx context.Context, user User) error
	// UserByEmail returns (nil, nil) when no user matches.
	UserByEmail(ctx context.Context, email string) (*User, error)
	// UserByID returns (nil, nil) when no user matches.
	UserByID(ctx context.Context, id string) (*User, error)
	CreateSession(ctx context.Context, session Session) error
	// SessionByToken returns (nil, nil) when no session matches.
	SessionByToken(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// Accounts handles registration, login and session resolution.
type Accounts struct {
	store      AccountStore
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAccounts constructs an Accounts service.
func NewAccounts(store AccountStore, sessionTTL time.Duration) *Accounts {
	return &Accounts{store: store, sessionTTL: sessionTTL, now: time.Now}
}

// Register creates a user and opens a session for it.
func (a *Accounts) Register(ctx context.Context, email, password string) (*User, *Session, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	session, err := a.openSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, session, nil
}

// Login verifies credentials and opens a session.
func (a *Accounts) Login(ctx context.Context, email, password string) (*User, *Session, error) {
	user, err := a.store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := a.openSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Logout deletes the session. Unknown tokens are a no-op.
func (a *Accounts) Logout(ctx context.Context, token string) error {
	return a.store.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to a live session.
func (a *Accounts) Authenticate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	session, err := a.store.SessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.ExpiresAt.After(a.now().UTC()) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// UserByID exposes store lookup for handlers that render account state.
func (a *Accounts) UserByID(ctx context.Context, id string) (*User, error) {
	return a.store.UserByID(ctx, id)
}

func (a *Accounts) openSession(ctx context.Context, userID string) (*Session, error) {
	now := a.now().UTC()
	session := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(a.sessionTTL),
	}
	if err := a.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
