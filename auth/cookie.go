package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieClaims is the payload signed into a session cookie. The cookie
// stays opaque to clients; only the server verifies it.
type CookieClaims struct {
	UserName string `json:"user_name"`
	jwt.RegisteredClaims
}

// CookieSigner issues and verifies the per-login session cookies bundled
// into tokens. Expiry is what makes a token go stale between messages.
type CookieSigner struct {
	key []byte
	ttl time.Duration
}

func NewCookieSigner(key []byte, ttl time.Duration) *CookieSigner {
	return &CookieSigner{key: key, ttl: ttl}
}

// Issue creates a fresh signed cookie for a user. Every login gets a new
// one; the previous cookie is invalidated by the session ledger, not here.
func (s *CookieSigner) Issue(userName string) (string, error) {
	now := time.Now()
	claims := &CookieClaims{
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-relay",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verify checks signature and expiry and returns the embedded user name.
func (s *CookieSigner) Verify(cookie string) (string, error) {
	token, err := jwt.ParseWithClaims(cookie, &CookieClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*CookieClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	return claims.UserName, nil
}
