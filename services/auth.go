package services

import (
	"log/slog"
	"sync"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

// AuthService issues session tokens and keeps the ledger of the single
// active cookie per user. A new login overwrites the previous cookie,
// which silently invalidates any token still carrying it. Last login
// wins, and the superseded session is not notified.
type AuthService struct {
	users  repositories.IUserRepository
	signer *auth.CookieSigner
	log    *slog.Logger

	mu      sync.RWMutex
	cookies map[string]string
}

func NewAuthService(users repositories.IUserRepository, signer *auth.CookieSigner, log *slog.Logger) *AuthService {
	return &AuthService{
		users:   users,
		signer:  signer,
		log:     log,
		cookies: make(map[string]string),
	}
}

// Login checks credentials and mints a fresh token for the user.
func (s *AuthService) Login(name, password string) (domain.Token, error) {
	user, err := s.users.Get(name)
	if err != nil {
		return domain.Token{}, err
	}
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return domain.Token{}, err
	}
	if !match {
		return domain.Token{}, errors.ErrInvalidCredentials
	}

	cookie, err := s.signer.Issue(name)
	if err != nil {
		return domain.Token{}, err
	}

	s.mu.Lock()
	s.cookies[name] = cookie
	s.mu.Unlock()

	s.log.Info("User logged in", "user", name)
	return domain.Token{UserName: name, Cookie: cookie}, nil
}

// Authorize reports whether a token is still the active one for its
// user. Expiry is enforced by the cookie signature, supersession by the
// ledger comparison.
func (s *AuthService) Authorize(token domain.Token) bool {
	userName, err := s.signer.Verify(token.Cookie)
	if err != nil || userName != token.UserName {
		return false
	}

	s.mu.RLock()
	current, ok := s.cookies[token.UserName]
	s.mu.RUnlock()
	return ok && current == token.Cookie
}

// CreateUser validates and registers a new account.
func (s *AuthService) CreateUser(name, password string) error {
	if err := auth.ValidateRegister(auth.RegisterRequest{Name: name, Password: password}); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.Create(name, hash)
}
