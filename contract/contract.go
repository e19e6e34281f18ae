package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; the supervisor recovers its panics.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding the need for manual naming in the Worker interface. Used for
// supervision logs.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// SessionStore is the collaborator every channel listener and peer
// session talks to. The store owns its own concurrency control; the
// engine treats it as safely shared.
type SessionStore interface {
	// Authorize reports whether a token is currently valid: signature
	// and expiry hold, and the cookie matches the one on record for the
	// user (a later login supersedes earlier tokens).
	Authorize(token domain.Token) bool

	// UnseenMessages returns the messages of a channel the user has not
	// seen yet, in ascending ID order.
	UnseenMessages(channel, user string) ([]domain.StoredMessage, error)

	// SaveMessage appends one message to a channel's history.
	SaveMessage(ctx context.Context, channel, user, content string) error

	// SaveHistoryCursor moves the user's read cursor to the channel's
	// current max message ID.
	SaveHistoryCursor(ctx context.Context, channel, user string) error
}
