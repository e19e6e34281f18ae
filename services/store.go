package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"chat-relay/domain"
	"chat-relay/repositories"
)

const storeRetryDelay = 50 * time.Millisecond

// Store is the session store facade the broadcast engine talks to. It
// composes the repositories with the auth service and retries transient
// write failures once before surfacing them.
type Store struct {
	auth     *AuthService
	messages repositories.IMessageRepository
	cursors  repositories.ICursorRepository
	log      *slog.Logger
}

func NewStore(
	auth *AuthService,
	messages repositories.IMessageRepository,
	cursors repositories.ICursorRepository,
	log *slog.Logger,
) *Store {
	return &Store{auth: auth, messages: messages, cursors: cursors, log: log}
}

func (s *Store) Authorize(token domain.Token) bool {
	return s.auth.Authorize(token)
}

// UnseenMessages returns the channel's messages with an ID above the
// user's read cursor, ascending. A user with no cursor sees everything.
func (s *Store) UnseenMessages(channel, user string) ([]domain.StoredMessage, error) {
	cursor, err := s.cursors.Get(user, channel)
	if err != nil {
		return nil, err
	}
	return s.messages.After(channel, cursor)
}

// SaveMessage appends one message, retrying the write once.
func (s *Store) SaveMessage(ctx context.Context, channel, user, content string) error {
	return retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(storeRetryDelay)), func(ctx context.Context) error {
		if _, err := s.messages.Append(channel, user, content); err != nil {
			s.log.Warn("Storing message failed", "channel", channel, "user", user, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// SaveHistoryCursor moves the user's cursor to the channel's current max
// message ID, so the next join replays only what came after.
func (s *Store) SaveHistoryCursor(ctx context.Context, channel, user string) error {
	maxID, err := s.messages.MaxID(channel)
	if err != nil {
		return err
	}
	return retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(storeRetryDelay)), func(ctx context.Context) error {
		if err := s.cursors.Set(user, channel, maxID); err != nil {
			s.log.Warn("Storing read cursor failed", "channel", channel, "user", user, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
