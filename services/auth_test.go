package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

func newTestAuth(t *testing.T, ttl time.Duration) *AuthService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	signer := auth.NewCookieSigner([]byte("test-signing-key"), ttl)
	return NewAuthService(repositories.NewUserRepository(db), signer, slog.Default())
}

func TestLogin_And_Authorize(t *testing.T) {
	req := require.New(t)
	service := newTestAuth(t, time.Hour)
	req.NoError(service.CreateUser("alice", "CorrectHorse7"))

	token, err := service.Login("alice", "CorrectHorse7")
	req.NoError(err)
	req.Equal("alice", token.UserName)
	req.NotEmpty(token.Cookie)

	req.True(service.Authorize(token))
}

func TestLogin_Refuses_Bad_Credentials(t *testing.T) {
	req := require.New(t)
	service := newTestAuth(t, time.Hour)
	req.NoError(service.CreateUser("alice", "CorrectHorse7"))

	_, err := service.Login("alice", "WrongHorse7")
	req.ErrorIs(err, errors.ErrInvalidCredentials)

	_, err = service.Login("nobody", "CorrectHorse7")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestAuthorize_Last_Login_Wins(t *testing.T) {
	req := require.New(t)
	service := newTestAuth(t, time.Hour)
	req.NoError(service.CreateUser("alice", "CorrectHorse7"))

	// Given a first session
	first, err := service.Login("alice", "CorrectHorse7")
	req.NoError(err)
	req.True(service.Authorize(first))

	// When the same user logs in again
	second, err := service.Login("alice", "CorrectHorse7")
	req.NoError(err)

	// Then only the newest token authorizes; the first one is
	// superseded without any notification to its holder.
	req.True(service.Authorize(second))
	req.False(service.Authorize(first))
}

func TestAuthorize_Rejects_Forged_And_Expired(t *testing.T) {
	req := require.New(t)
	service := newTestAuth(t, time.Hour)
	req.NoError(service.CreateUser("alice", "CorrectHorse7"))

	token, err := service.Login("alice", "CorrectHorse7")
	req.NoError(err)

	// A cookie re-labeled with someone else's name does not authorize.
	forged := domain.Token{UserName: "bob", Cookie: token.Cookie}
	req.False(service.Authorize(forged))

	// A made-up cookie does not authorize.
	req.False(service.Authorize(domain.Token{UserName: "alice", Cookie: "garbage"}))

	// An expired cookie stops authorizing even for its own user.
	expiring := newTestAuth(t, -time.Minute)
	req.NoError(expiring.CreateUser("bob", "CorrectHorse7"))
	stale, err := expiring.Login("bob", "CorrectHorse7")
	req.NoError(err)
	req.False(expiring.Authorize(stale))
}

func TestCreateUser_Validates(t *testing.T) {
	req := require.New(t)
	service := newTestAuth(t, time.Hour)

	req.Error(service.CreateUser("a", "CorrectHorse7"))
	req.Error(service.CreateUser("alice", "weak"))
	req.NoError(service.CreateUser("alice", "CorrectHorse7"))
	req.ErrorIs(service.CreateUser("alice", "CorrectHorse7"), errors.ErrNameTaken)
}
