package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryAccountStore struct {
	users    map[string]User // keyed by email
	sessions map[string]Session
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{
		users:    make(map[string]User),
		sessions: make(map[string]Session),
	}
}

func (m *memoryAccountStore) CreateUser(_ context.Context, user User) error {
	if _, ok := m.users[user.Email]; ok {
		return ErrEmailTaken
	}
	m.users[user.Email] = user
	return nil
}

func (m *memoryAccountStore) UserByEmail(_ context.Context, email string) (*User, error) {
	if user, ok := m.users[email]; ok {
		return &user, nil
	}
	return nil, nil
}

func (m *memoryAccountStore) UserByID(_ context.Context, id string) (*User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return &user, nil
		}
	}
	return nil, nil
}

func (m *memoryAccountStore) CreateSession(_ context.Context, session Session) error {
	m.sessions[session.Token] = session
	return nil
}

func (m *memoryAccountStore) SessionByToken(_ context.Context, token string) (*Session, error) {
	if session, ok := m.sessions[token]; ok {
		return &session, nil
	}
	return nil, nil
}

func (m *memoryAccountStore) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	store := newMemoryAccountStore()
	accounts := NewAccounts(store, time.Hour)

	user, session, err := accounts.Register(context.Background(), " Dev@Example.COM ", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "dev@example.com", user.Email)
	require.NotEmpty(t, session.Token)
	require.Equal(t, user.ID, session.UserID)

	loggedIn, loginSession, err := accounts.Login(context.Background(), "dev@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, loggedIn.ID)
	require.NotEqual(t, session.Token, loginSession.Token)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	accounts := NewAccounts(newMemoryAccountStore(), time.Hour)

	_, _, err := accounts.Register(context.Background(), "not-an-email", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, _, err = accounts.Register(context.Background(), "dev@example.com", "short")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	accounts := NewAccounts(newMemoryAccountStore(), time.Hour)

	_, _, err := accounts.Register(context.Background(), "dev@example.com", "correct-horse")
	require.NoError(t, err)

	_, _, err = accounts.Register(context.Background(), "dev@example.com", "another-pass")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginWrongPassword(t *testing.T) {
	accounts := NewAccounts(newMemoryAccountStore(), time.Hour)

	_, _, err := accounts.Register(context.Background(), "dev@example.com", "correct-horse")
	require.NoError(t, err)

	_, _, err = accounts.Login(context.Background(), "dev@example.com", "wrong-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = accounts.Login(context.Background(), "nobody@example.com", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateExpiredSession(t *testing.T) {
	store := newMemoryAccountStore()
	accounts := NewAccounts(store, time.Hour)

	_, session, err := accounts.Register(context.Background(), "dev@example.com", "correct-horse")
	require.NoError(t, err)

	resolved, err := accounts.Authenticate(context.Background(), session.Token)
	require.NoError(t, err)
	require.Equal(t, session.UserID, resolved.UserID)

	accounts.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = accounts.Authenticate(context.Background(), session.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLogoutRemovesSession(t *testing.T) {
	store := newMemoryAccountStore()
	accounts := NewAccounts(store, time.Hour)

	_, session, err := accounts.Register(context.Background(), "dev@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, accounts.Logout(context.Background(), session.Token))

	_, err = accounts.Authenticate(context.Background(), session.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// Logging out an unknown token is a no-op.
	require.NoError(t, accounts.Logout(context.Background(), "missing"))
}
